package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scratchbench/internal/config"
	"github.com/roach88/scratchbench/internal/evaluation"
	"github.com/roach88/scratchbench/internal/harness"
	"github.com/roach88/scratchbench/internal/scenarios"
	"github.com/roach88/scratchbench/internal/sim/browser"
	"github.com/roach88/scratchbench/internal/store"
	"github.com/roach88/scratchbench/internal/timing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend   string
	Timeout   float64 // per-case budget, seconds
	Sprite    string
	Files     []string
	Parallel  int
	Database  string
	Overrides map[string]string
	All       bool

	// IDs overrides the run id generator (for testing).
	IDs evaluation.IDGenerator
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Reports []evaluation.Report `json:"reports"`
	Passed  int                 `json:"passed"`
	Failed  int                 `json:"failed"`
	Total   int                 `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <task...>",
		Short: "Evaluate tasks",
		Long: `Evaluate one or more tasks and report per-case verdicts.

Tasks are the built-in scenarios (see "scratchbench list") plus any
definition files given with --file or listed in the configuration.

Exit codes:
  0 - Every task passed
  1 - One or more tasks failed
  2 - Command error (unknown task, bad flags, unreadable definition, etc.)

Examples:
  scratchbench run countdown
  scratchbench run --all --parallel 4
  scratchbench run ask_name --backend browser --sprite Sprite1
  scratchbench run walk_right --file walk_right.yaml --set hold_ms=1500`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "simulation backend (memsim|browser)")
	cmd.Flags().Float64Var(&opts.Timeout, "timeout", 0, "per-case budget in seconds (0 keeps the scenario default)")
	cmd.Flags().StringVar(&opts.Sprite, "sprite", "", "sprite name override")
	cmd.Flags().StringSliceVarP(&opts.Files, "file", "f", nil, "scenario definition file or directory (repeatable)")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 1, "maximum concurrent evaluations")
	cmd.Flags().StringVar(&opts.Database, "db", "", "run ledger path (defaults to the configured one)")
	cmd.Flags().StringToStringVar(&opts.Overrides, "set", nil, "scenario option key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "evaluate every known task")

	return cmd
}

func runTasks(opts *RunOptions, tasks []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	app := *opts.App

	if cmd.Flags().Changed("backend") {
		app.Backend = opts.Backend
	}
	if cmd.Flags().Changed("db") {
		app.DB = opts.Database
	}
	if err := app.Validate(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	caseTimeout, err := timing.Seconds(opts.Timeout)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid --timeout", err)
	}
	if len(tasks) == 0 && !opts.All {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "no task given (name tasks or pass --all)", nil)
	}

	registry, err := loadRegistry(append(append([]string{}, app.Definitions...), opts.Files...))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDefinition, "failed to load definitions", err)
	}
	if opts.All {
		tasks = registry.Names()
	}

	svcOpts := evaluation.Options{
		Tasks:         registry,
		Open:          opener(&app, opts),
		Backend:       app.Backend,
		IDs:           opts.IDs,
		SafetyTimeout: app.Safety(),
		Logger:        opts.Log,
	}
	if app.DB != "" {
		st, err := store.Open(app.DB)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open run ledger", err)
		}
		defer st.Close()
		svcOpts.Store = st
		formatter.VerboseLog("Recording runs in %s", app.DB)
	}
	svc, err := evaluation.New(svcOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to start evaluation", err)
	}

	reqs := make([]evaluation.Request, 0, len(tasks))
	for _, task := range tasks {
		reqs = append(reqs, evaluation.Request{
			TaskName:   task,
			Timeout:    caseTimeout,
			SpriteName: opts.Sprite,
			Overrides:  overrides(opts.Overrides),
		})
	}

	reports, err := svc.EvaluateAll(cmd.Context(), reqs, opts.Parallel)
	if errors.Is(err, evaluation.ErrUnknownTask) {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownTask, err.Error(), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
	}

	out := RunOutput{Reports: reports, Total: len(reports)}
	for _, rep := range reports {
		if rep.Passed() {
			out.Passed++
		} else {
			out.Failed++
		}
	}
	if err := formatter.Success(out, func(w io.Writer) { renderRun(w, out, opts.Verbose) }); err != nil {
		return err
	}
	if out.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d tasks failed", out.Failed, out.Total))
	}
	return nil
}

// loadRegistry returns the built-in scenarios plus every definition found
// under paths (files or directories).
func loadRegistry(paths []string) (*scenarios.Registry, error) {
	registry := scenarios.Builtin()
	if len(paths) == 0 {
		return registry, nil
	}
	files, err := harness.FindDefinitions(paths...)
	if err != nil {
		return nil, err
	}
	if err := registry.LoadFiles(files...); err != nil {
		return nil, err
	}
	return registry, nil
}

func opener(app *config.App, opts *RunOptions) evaluation.Opener {
	if app.Backend == config.BackendBrowser {
		return evaluation.BrowserOpener(browser.Options{
			RemoteURL: app.ChromeURL,
			GUIURL:    app.GUIURL,
			Headful:   app.Headful,
			Logger:    opts.Log,
		})
	}
	return evaluation.MemsimOpener()
}

func overrides(set map[string]string) map[string]any {
	if len(set) == 0 {
		return nil
	}
	m := make(map[string]any, len(set))
	for k, v := range set {
		m[k] = v
	}
	return m
}

func renderRun(w io.Writer, out RunOutput, verbose bool) {
	for _, rep := range out.Reports {
		mark := "✓"
		if !rep.Passed() {
			mark = "✗"
		}
		if rep.Result == nil {
			fmt.Fprintf(w, "%s %s  error: %s\n", mark, rep.TaskName, rep.Error)
			continue
		}
		res := rep.Result
		fmt.Fprintf(w, "%s %s  %d/%d passed (%.0f%%)  %s\n",
			mark, rep.TaskName, res.PassedTests, res.TotalTests,
			res.PartialSuccessRate*100, rep.Duration.Round(time.Millisecond))
		for _, d := range res.Details {
			if d.Passed && !verbose {
				continue
			}
			caseMark := "✓"
			if !d.Passed {
				caseMark = "✗"
			}
			line := fmt.Sprintf("    %s %s %s", caseMark, d.Name, d.Status)
			if d.Error != "" {
				line += ": " + d.Error
			} else if reason, ok := d.Meta["reason"].(string); ok {
				line += ": " + reason
			}
			fmt.Fprintln(w, line)
		}
		if verbose {
			fmt.Fprintf(w, "    run %s\n", rep.RunID)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", out.Passed, out.Failed, out.Total)
}
