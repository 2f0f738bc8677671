package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/spf13/cobra"
)

var (
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7A89"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	sqlStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := loadRuntime(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.login(ctx, askEmail, askPassword)
	if err != nil {
		return err
	}
	defer func() { _ = a.sessions.Logout(ctx, sess) }()

	reply, err := a.assistant.Ask(ctx, sess, strings.Join(args, " "))
	if err != nil {
		return err
	}
	renderReply(cmd.OutOrStdout(), reply)
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := loadRuntime(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.login(ctx, askEmail, askPassword)
	if err != nil {
		return err
	}
	defer func() { _ = a.sessions.Logout(ctx, sess) }()

	sql, err := a.assistant.Explain(ctx, sess, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sqlStyle.Render(sql))
	return nil
}

func renderReply(w io.Writer, reply *assistant.Reply) {
	if reply.Kind == assistant.KindError {
		fmt.Fprintln(w, errorStyle.Render(reply.Text))
	} else {
		fmt.Fprintln(w, reply.Text)
	}

	if reply.Kind == assistant.KindTable && reply.Payload != nil && len(reply.Payload.Columns) > 0 {
		rows := make([][]string, 0, len(reply.Payload.Rows))
		for _, row := range reply.Payload.Rows {
			cells := make([]string, len(reply.Payload.Columns))
			for i, col := range reply.Payload.Columns {
				cells[i] = formatCell(row[col])
			}
			rows = append(rows, cells)
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(reply.Payload.Columns...).
			Rows(rows...)
		fmt.Fprintln(w, t.String())
	}

	if reply.Trace.Channel != "" || reply.Trace.CatalogOrigin != "" {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("channel=%s catalog=%s", reply.Trace.Channel, reply.Trace.CatalogOrigin)))
	}
}

func formatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return humanize.CommafWithDigits(n, 2)
	case int64:
		return humanize.Comma(n)
	case int:
		return humanize.Comma(int64(n))
	default:
		return fmt.Sprint(v)
	}
}
