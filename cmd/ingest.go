package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob>...",
	Short: "Add FAQ, runbook and policy files to the knowledge base",
	Long: `Reads every file matching the given patterns (** is supported) and adds
its paragraphs to the knowledge base. Each file's path is used as its source
unless --source is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("source", "", "source label for all ingested files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	source, _ := cmd.Flags().GetString("source")

	files, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %v", args)
	}

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	reporter := progress.NewReporter("Ingesting knowledge")
	reporter.Start(len(files))

	total, skipped := 0, 0
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			reporter.Finish()
			return fmt.Errorf("reading %s: %w", path, err)
		}

		n, err := a.kb.UploadFile(ctx, path, data, source)
		switch {
		case errors.Is(err, knowledge.ErrEmptyUpload):
			skipped++
		case err != nil:
			reporter.Finish()
			return err
		}
		total += n
		reporter.Update(i+1, filepath.Base(path))
	}
	reporter.Finish()

	fmt.Printf("Ingested %d chunk(s) from %d file(s)", total, len(files)-skipped)
	if skipped > 0 {
		fmt.Printf(", skipped %d empty file(s)", skipped)
	}
	fmt.Printf(". Knowledge base now holds %d chunk(s).\n", a.kb.Count())
	return nil
}

// expandGlobs resolves patterns to a sorted, de-duplicated list of regular files.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
