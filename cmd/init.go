package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize supportdesk configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the LLM provider, embeddings, ticket store and event brokers, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
