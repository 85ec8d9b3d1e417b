package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/join"
	"github.com/tableforge-labs/tableforge/pkg/table"
	"github.com/tableforge-labs/tableforge/pkg/transform"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var structuralOnly bool

	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a transform config",
		Long: `Validate checks a transform config's structure, then resolves its
datasets and checks every referenced column against the actual schemas.
Use --structural to skip dataset resolution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTransform(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := cfg.Validate(); err != nil {
				return err
			}
			if structuralOnly {
				_, _ = fmt.Fprintln(out, "config is structurally valid")
				return nil
			}

			appCfg := currentConfig()
			resolver, err := openResolver(appCfg)
			if err != nil {
				return err
			}
			base, err := resolver.Resolve(cmd.Context(), string(cfg.Primary()))
			if err != nil {
				return err
			}
			joined, _, err := join.Execute(base, cfg.Joins, func(ref string) (*table.Table, error) {
				return resolver.Resolve(cmd.Context(), ref)
			})
			if err != nil {
				return err
			}

			review := transform.ReviewAgainst(cfg, joined.ColumnNames())
			for _, w := range review.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if !review.OK() {
				for _, e := range review.Errors {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
				}
				return fmt.Errorf("config has %d error(s)", len(review.Errors))
			}
			_, _ = fmt.Fprintln(out, "config is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&structuralOnly, "structural", false, "Skip dataset resolution")
	return cmd
}
