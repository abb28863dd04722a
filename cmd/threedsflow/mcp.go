package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/acquirelab/threedsflow/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the harness as an MCP server over stdio so AI agents can
drive authentication test runs as tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		harness, _, cleanup, err := buildHarness(cfg)
		if err != nil {
			fmt.Printf("Error initializing harness: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		// Keep logs off Stdout so they don't corrupt JSON-RPC.
		log.SetOutput(os.Stderr)

		srv := mcp.NewServer(harness, cfg.Gateway, cfg.Card)
		if err := srv.ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "MCP server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
