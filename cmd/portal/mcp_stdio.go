package main

import (
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/mcp"
	"github.com/spf13/cobra"
)

// runMCPStdio serves MCP on stdin/stdout. The member logs in once at startup
// and every tool call runs as that member.
func runMCPStdio(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := loadRuntime(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.login(ctx, askEmail, askPassword)
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcp.Config{
		Assistant:     a.assistant,
		Session:       sess,
		TransportMode: mcp.ModeStdio,
		Version:       version,
		Logger:        logger,
	})

	logger.Info("starting stdio transport", "member_id", sess.MemberID)
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
