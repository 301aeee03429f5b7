package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cratewatch/internal/indexsync"
	"cratewatch/internal/queue"
	"cratewatch/internal/worker"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the index once and queue newly added releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return ctx.withStore(cmd.Context(), func(store *queue.Store) error {
				result, err := newSynchronizer(cfg, store, logger).Sync(cmd.Context())
				if err != nil {
					return err
				}
				printSyncResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newDrainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Attempt every queued release once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return ctx.withStore(cmd.Context(), func(store *queue.Store) error {
				w, err := newWorker(cfg, store, logger)
				if err != nil {
					return err
				}
				report, err := w.Drain(cmd.Context())
				printDrainReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}
}

func printSyncResult(out io.Writer, result indexsync.Result) {
	if result.Unchanged() {
		fmt.Fprintf(out, "Index unchanged at %s\n", shortHash(result.NewTree))
		return
	}
	fmt.Fprintf(out, "Index %s..%s\n", shortHash(result.OldTree), shortHash(result.NewTree))
	rows := [][]string{
		{"Changed lines", strconv.Itoa(result.Lines)},
		{"Candidates", strconv.Itoa(result.Candidates)},
		{"Queued", strconv.Itoa(result.Enqueued)},
		{"Malformed", strconv.Itoa(result.Malformed)},
		{"Incomplete", strconv.Itoa(result.Incomplete)},
		{"Enqueue failures", strconv.Itoa(result.EnqueueFailures)},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}
	if isTerminal(out) {
		fmt.Fprint(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
		return
	}
	fmt.Fprint(out, renderPlain(rows))
}

func printDrainReport(out io.Writer, report worker.Report) {
	if report.Pending == 0 && len(report.Outcomes) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.Entry.ID, 10),
			o.Entry.Name,
			o.Entry.Version,
			string(o.Status),
			o.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	if isTerminal(out) {
		fmt.Fprint(out, renderTable(
			[]string{"ID", "Name", "Version", "Status", "Duration", "Error"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	} else {
		fmt.Fprint(out, renderPlain(rows))
	}
	fmt.Fprintf(out, "Attempted %d of %d: %d built, %d failed, %d not removed\n",
		len(report.Outcomes), report.Pending,
		report.Count(worker.StatusBuilt),
		report.Count(worker.StatusFailed),
		report.Count(worker.StatusRemoveFailed),
	)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	if hash == "" {
		return "(none)"
	}
	return hash
}
