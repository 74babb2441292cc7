package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/apidiff/internal/replay"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	Logs string
	Out  string
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(root *RootOptions) *cobra.Command {
	opts := &ExtractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract unique request patterns from logs",
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
			groups, err := extractGroups(cfg, opts.Logs, out)
			if err != nil {
				return err
			}
			if err := writeGroups(opts.Out, groups); err != nil {
				return err
			}
			return out.Success(fmt.Sprintf("Wrote %d groups (%d subcases) to %s",
				len(groups), len(replay.Flatten(groups)), opts.Out))
		},
	}

	cmd.Flags().StringVar(&opts.Logs, "logs", "", "path to JSON/JSONL traffic logs")
	cmd.Flags().StringVar(&opts.Out, "out", "artifacts/testcases.json", "where to write extracted testcases")
	cmd.MarkFlagRequired("logs")

	return cmd
}
