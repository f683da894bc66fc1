package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Semantically search the knowledge base",
	Long:  `Searches the knowledge base with a natural language query and prints the closest chunks.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("top-k", knowledge.DefaultTopK, "maximum number of results")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := strings.Join(args, " ")

	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.kb.Count() == 0 {
		fmt.Println("Knowledge base is empty. Run `supportdesk ingest` first.")
		return nil
	}

	hits, err := a.kb.Search(ctx, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		if hits == nil {
			hits = []vectordb.Hit{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	printHits(hits)
	return nil
}

func printHits(hits []vectordb.Hit) {
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Printf("Found %d results:\n\n", len(hits))
	for i, h := range hits {
		fmt.Printf("  %d. [%.1f%%] %s (chunk %d)\n", i+1, h.Score*100, h.Source, h.ChunkIndex)
		fmt.Printf("     %s\n\n", truncate(h.Text, 120))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
