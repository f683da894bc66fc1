package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/progress"
)

var processCmd = &cobra.Command{
	Use:   "process [id]",
	Short: "Triage a ticket through the retrieval, diagnosis and communication stages",
	Long: `Runs the triage pipeline for one ticket and prints the result as JSON.
With --all, processes the most recent tickets concurrently (max_concurrency
at a time) and reports the outcome of each.`,
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all && len(args) > 0 {
			return errors.New("pass either a ticket id or --all, not both")
		}
		if !all && len(args) != 1 {
			return errors.New("a ticket id is required unless --all is set")
		}
		return nil
	},
	RunE: runProcess,
}

func init() {
	processCmd.Flags().Bool("all", false, "process recent tickets in a batch")
	processCmd.Flags().Int("limit", 100, "maximum number of tickets for --all")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, appOptions{pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if all, _ := cmd.Flags().GetBool("all"); all {
		limit, _ := cmd.Flags().GetInt("limit")
		return processAll(ctx, a, limit)
	}

	res, err := a.processor.ProcessByID(ctx, args[0])
	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			return fmt.Errorf("processing failed at %s stage (%s): %w", se.Stage, se.Kind(), se.Err)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func processAll(ctx context.Context, a *app, limit int) error {
	list, err := a.tickets.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No tickets to process.")
		return nil
	}
	ids := make([]string, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}

	reporter := progress.NewReporter("Processing tickets")
	reporter.Start(len(ids))

	var mu sync.Mutex
	done := 0
	results := a.processor.ProcessBatch(ctx, ids, a.cfg.MaxConcurrency, func(r pipeline.BatchResult) {
		mu.Lock()
		defer mu.Unlock()
		done++
		reporter.Update(done, r.TicketID)
	})
	reporter.Finish()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%s  failed (%s)\n", r.TicketID, describeErr(r.Err))
			continue
		}
		d := r.Result.Diagnosis
		escalated := ""
		if d.ShouldEscalate {
			escalated = ", escalated"
		}
		fmt.Printf("%s  %s risk%s\n", r.TicketID, d.Risk, escalated)
	}
	fmt.Printf("\nProcessed %d ticket(s), %d failed.\n", len(results)-failed, failed)
	return nil
}

func describeErr(err error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s stage, %s", se.Stage, se.Kind())
	}
	return pipeline.KindOf(err)
}
