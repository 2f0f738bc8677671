// Command portal runs the benefits assistant: the HTTP API, the MCP
// endpoint, seeding and one-shot questions from the terminal.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
