package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/apidiff/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	DB    string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(root *RootOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    root.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   root.Verbose,
			}

			st, err := store.Open(opts.DB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open history database", err)
			}
			defer st.Close()

			records, err := st.ListRuns(cmd.Context(), opts.Limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "list runs", err)
			}

			if root.Format == "json" {
				return out.Success(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out.Writer, "no recorded runs")
				return nil
			}
			pass := color.New(color.FgGreen).SprintFunc()
			fail := color.New(color.FgRed).SprintFunc()
			for _, r := range records {
				verdict := pass("PASS")
				if r.Summary.Failed > 0 {
					verdict = fail("FAIL")
				}
				fmt.Fprintf(out.Writer, "%s  %s  %s vs %s  %d/%d passed  %s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.ID[:8],
					r.Left.BaseURL, r.Right.BaseURL,
					r.Summary.Passed, r.Summary.Total,
					verdict,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "artifacts/history.db", "path to the history database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")

	return cmd
}
