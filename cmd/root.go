package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "supportdesk",
	Short: "AI-assisted customer support ticket triage",
	Long: `Supportdesk registers customer support tickets and triages them with a
three-stage LLM pipeline: it retrieves relevant knowledge base entries,
diagnoses the issue and drafts an empathetic reply for the customer.
It runs as an HTTP server with a dashboard, as an MCP server for AI
agents, or from the command line.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".supportdesk.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging sends JSON logs to stderr. Stdout is left to command output
// and the MCP protocol.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
