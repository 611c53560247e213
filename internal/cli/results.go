package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scratchbench/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database string
	Task     string
	Limit    int
	Summary  bool
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded in the run ledger.

Without arguments, lists the most recent runs. With a run id, shows that
run case by case. With --summary, aggregates every run per task.

Examples:
  scratchbench results
  scratchbench results --task countdown --limit 5
  scratchbench results --summary
  scratchbench results 01928f3e-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "run ledger path (defaults to the configured one)")
	cmd.Flags().StringVar(&opts.Task, "task", "", "only runs of this task")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "aggregate runs per task")

	return cmd
}

func runResults(opts *ResultsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	db := opts.App.DB
	if cmd.Flags().Changed("db") {
		db = opts.Database
	}
	if db == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "no run ledger configured (use --db)", nil)
	}
	// Open would create an empty ledger
	if _, err := os.Stat(db); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", db), nil)
	}

	st, err := store.Open(db)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open run ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case len(args) == 1:
		run, err := st.ReadRun(ctx, args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", args[0]), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
		}
		return formatter.Success(run, func(w io.Writer) { renderStoredRun(w, run, opts.Verbose) })

	case opts.Summary:
		summaries, err := st.Summarize(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to summarize runs", err)
		}
		return formatter.Success(summaries, func(w io.Writer) { renderSummaries(w, summaries) })

	default:
		runs, err := st.ListRuns(ctx, store.RunFilter{Task: opts.Task, Limit: opts.Limit})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		return formatter.Success(runs, func(w io.Writer) { renderRuns(w, runs) })
	}
}

func renderRuns(w io.Writer, runs []store.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTASK\tSTATUS\tPASSED\tSTARTED\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID, r.Task, r.Status, r.PassedTests, r.TotalTests,
			r.StartedAt.Local().Format(time.DateTime), r.Duration.Round(time.Millisecond))
	}
	tw.Flush()
}

func renderStoredRun(w io.Writer, r store.RunRecord, verbose bool) {
	fmt.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  task:     %s\n", r.Task)
	fmt.Fprintf(w, "  status:   %s (%d/%d, %.0f%%)\n", r.Status, r.PassedTests, r.TotalTests, r.PartialSuccessRate*100)
	fmt.Fprintf(w, "  backend:  %s\n", r.Backend)
	fmt.Fprintf(w, "  started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  duration: %s\n", r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", r.Error)
	}
	for _, c := range r.Cases {
		mark := "✓"
		if !c.Passed {
			mark = "✗"
		}
		line := fmt.Sprintf("  %s %s %s", mark, c.Name, c.Status)
		if c.Error != "" {
			line += ": " + c.Error
		}
		fmt.Fprintln(w, line)
		if verbose && len(c.Meta) > 0 {
			fmt.Fprintf(w, "      %v\n", c.Meta)
		}
	}
	if verbose && r.Stdout != "" {
		fmt.Fprintf(w, "\n%s", r.Stdout)
	}
}

func renderSummaries(w io.Writer, summaries []store.TaskSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tRUNS\tSUCCESSES\tSUCCESS RATE\tAVG PARTIAL\tAVG DURATION")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\t%.0f%%\t%.1fs\n",
			s.Task, s.Runs, s.Successes, s.SuccessRate*100, s.AvgPartialRate*100, s.AvgDurationSec)
	}
	tw.Flush()
}
