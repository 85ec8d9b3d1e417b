package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		offset   int
		limit    int
		showMeta bool
	)

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a transform config and print the result page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg := currentConfig()
			cfg, err := loadTransform(args[0])
			if err != nil {
				return err
			}

			runner, _, err := newRunner(cmd, appCfg)
			if err != nil {
				return err
			}

			res, err := runner.Run(cmd.Context(), cfg, pipeline.Page{Offset: offset, Limit: limit})
			if err != nil {
				return err
			}

			cols := make([]string, len(res.Meta.Columns))
			for i, c := range res.Meta.Columns {
				cols[i] = c.Name
			}
			if err := renderRows(cmd.OutOrStdout(), cols, res.Rows, appCfg.Output); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "total=%d offset=%d limit=%d\n", res.Total, res.Offset, res.Limit)
			for _, w := range res.Meta.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if showMeta {
				for _, q := range res.Meta.JoinQuality {
					_, _ = fmt.Fprintf(out, "join %s (%s): match=%.2f blank_keys=%.2f duplicate_keys=%.2f\n",
						q.RightRef, q.RightPrefix, q.MatchRate, q.BlankKeyRate, q.DuplicateKeyRate)
				}
				_, _ = fmt.Fprintf(out, "fingerprint=%s\n", res.Meta.ConfigFingerprint)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Row offset of the page")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (0 uses the config's page_size)")
	cmd.Flags().BoolVar(&showMeta, "meta", false, "Print join quality and fingerprint")
	return cmd
}
