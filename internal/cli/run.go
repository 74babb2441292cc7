package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/apidiff/internal/config"
	"github.com/roach88/apidiff/internal/replay"
	"github.com/roach88/apidiff/internal/report"
	"github.com/roach88/apidiff/internal/store"
	"github.com/roach88/apidiff/internal/testcase"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Testcases       string
	RefreshFromLogs bool
	Logs            string
	Artifacts       string
	Max             int
	XLSX            bool
	NoHistory       bool
}

// NewRunCommand creates the run command.
func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay testcases against both targets and generate a report",
		Long: "Replays extracted testcases against the left and right targets and\n" +
			"writes results.json plus an HTML report. Exits 1 when any case differs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    root.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   root.Verbose,
			}

			cfg, err := loadConfig(root.Config)
			if err != nil {
				return err
			}

			var groups []testcase.PathGroup
			if opts.RefreshFromLogs || (opts.Testcases == "" && opts.Logs != "") {
				groups, err = extractGroups(cfg, opts.Logs, out)
			} else {
				path := opts.Testcases
				if path == "" {
					path = filepath.Join(opts.Artifacts, "testcases.json")
				}
				groups, err = readGroups(path)
			}
			if err != nil {
				return err
			}
			groups = limitGroups(groups, opts.Max)

			return executeRun(cmd.Context(), cfg, groups, opts, out)
		},
	}

	cmd.Flags().StringVar(&opts.Testcases, "testcases", "", "path to extracted testcases JSON")
	cmd.Flags().BoolVar(&opts.RefreshFromLogs, "refresh-from-logs", false, "re-extract testcases from logs before running")
	cmd.Flags().StringVar(&opts.Logs, "logs", "", "path to logs when using --refresh-from-logs")
	cmd.Flags().StringVar(&opts.Artifacts, "artifacts", "artifacts", "artifacts output directory")
	cmd.Flags().IntVar(&opts.Max, "max", 0, "run only the first N subcases")
	cmd.Flags().BoolVar(&opts.XLSX, "xlsx", false, "also export results as XLSX")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "skip recording the run in the history database")

	return cmd
}

// executeRun replays the groups and writes all artifacts.
// Shared between run and from-logs.
func executeRun(parent context.Context, cfg *config.Config, groups []testcase.PathGroup, opts *RunOptions, out *OutputFormatter) error {
	ignores, err := cfg.ResponseIgnoreRules()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	runner := replay.NewRunner(
		replay.Target{
			Name:           cfg.Targets.Left.Name,
			BaseURL:        cfg.Targets.Left.BaseURL,
			DefaultHeaders: cfg.Targets.Left.DefaultHeaders,
		},
		replay.Target{
			Name:           cfg.Targets.Right.Name,
			BaseURL:        cfg.Targets.Right.BaseURL,
			DefaultHeaders: cfg.Targets.Right.DefaultHeaders,
		},
		ignores,
		cfg.DiffOptions(),
		replay.Options{
			Concurrency: cfg.Execution.Concurrency,
			Timeout:     time.Duration(cfg.Execution.TimeoutSeconds) * time.Second,
			VerifyTLS:   cfg.Execution.VerifyTLS,
			Retries:     cfg.Execution.Retries,
			Backoff:     time.Duration(cfg.Execution.BackoffSeconds * float64(time.Second)),
		},
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subs := replay.Flatten(groups)
	out.VerboseLog("replaying %d subcases with %d workers", len(subs), cfg.Execution.Concurrency)

	results, runErr := runner.Run(ctx, groups)
	if runErr != nil {
		// Cancellation still reports everything that completed.
		out.VerboseLog("run interrupted: %v (%d of %d completed)", runErr, len(results), len(subs))
	}

	run := report.NewRun(
		report.TargetInfo{Name: cfg.Targets.Left.Name, BaseURL: cfg.Targets.Left.BaseURL},
		report.TargetInfo{Name: cfg.Targets.Right.Name, BaseURL: cfg.Targets.Right.BaseURL},
		subs, results,
	)

	resultsPath := filepath.Join(opts.Artifacts, "results.json")
	if err := report.WriteJSON(resultsPath, run); err != nil {
		return WrapExitError(ExitCommandError, "write results", err)
	}
	htmlPath := filepath.Join(opts.Artifacts, "report.html")
	if err := report.WriteHTML(htmlPath, run); err != nil {
		return WrapExitError(ExitCommandError, "write report", err)
	}
	if opts.XLSX {
		if err := report.WriteXLSX(filepath.Join(opts.Artifacts, "report.xlsx"), run); err != nil {
			return WrapExitError(ExitCommandError, "write xlsx", err)
		}
	}
	if !opts.NoHistory {
		if err := saveHistory(parent, filepath.Join(opts.Artifacts, "history.db"), run); err != nil {
			// History is best effort; the report artifacts are the output.
			out.VerboseLog("history not recorded: %v", err)
		}
	}

	report.PrintSummary(out.Writer, run)
	out.VerboseLog("report: %s", htmlPath)

	if runErr != nil {
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	}
	if run.Summary.Failed > 0 {
		return NewExitError(ExitFailure, "cases differed")
	}
	return nil
}

func saveHistory(ctx context.Context, dbPath string, run *report.Run) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, run)
}
