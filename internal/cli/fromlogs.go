package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewFromLogsCommand creates the from-logs command: extract and run in
// one step.
func NewFromLogsCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}
	var logsPath string

	cmd := &cobra.Command{
		Use:   "from-logs",
		Short: "Extract testcases from logs and run them in one step",
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
			groups, err := extractGroups(cfg, logsPath, out)
			if err != nil {
				return err
			}
			groups = limitGroups(groups, opts.Max)

			if err := writeGroups(filepath.Join(opts.Artifacts, "testcases.json"), groups); err != nil {
				return err
			}
			return executeRun(cmd.Context(), cfg, groups, opts, out)
		},
	}

	cmd.Flags().StringVar(&logsPath, "logs", "", "path to JSON/JSONL traffic logs")
	cmd.Flags().StringVar(&opts.Artifacts, "artifacts", "artifacts", "artifacts output directory")
	cmd.Flags().IntVar(&opts.Max, "max", 0, "run only the first N subcases")
	cmd.Flags().BoolVar(&opts.XLSX, "xlsx", false, "also export results as XLSX")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "skip recording the run in the history database")
	cmd.MarkFlagRequired("logs")

	return cmd
}
