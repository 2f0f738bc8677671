package main

import (
	"github.com/spf13/cobra"
)

var (
	seedDir     string
	askEmail    string
	askPassword string

	rootCmd = &cobra.Command{
		Use:           "portal",
		Short:         "Benefits analytics assistant for insured members",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the MCP endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load companies, plans and members from CSV seed files",
		Args:  cobra.NoArgs,
		RunE:  runSeed,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Log in as a member and answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	explainCmd = &cobra.Command{
		Use:   "explain [question]",
		Short: "Log in as a member and print the SQL a question would run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExplain,
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP over stdio as one logged-in member",
		Args:  cobra.NoArgs,
		RunE:  runMCPStdio,
	}
)

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "", "seed directory (defaults to seeds.dir)")

	for _, cmd := range []*cobra.Command{askCmd, explainCmd, mcpCmd} {
		cmd.Flags().StringVar(&askEmail, "email", "", "member email")
		cmd.Flags().StringVar(&askPassword, "password", "", "member password")
		_ = cmd.MarkFlagRequired("email")
		_ = cmd.MarkFlagRequired("password")
	}

	rootCmd.AddCommand(serveCmd, seedCmd, askCmd, explainCmd, mcpCmd)
}
