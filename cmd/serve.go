package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/supportdesk/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ticket and knowledge base tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(context.Background(), appOptions{pipeline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		slog.Info("supportdesk MCP server started on stdio",
			"kb_chunks", a.kb.Count(),
			"ticket_store", a.cfg.TicketStore,
		)

		srv := mcpserver.NewServer(a.tickets, a.kb, a.processor)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
