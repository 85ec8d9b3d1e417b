package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/schema"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var suggestAgainst string

	cmd := &cobra.Command{
		Use:   "inspect [dataset]",
		Short: "List datasets, or profile one dataset's schema",
		Long: `Without arguments, inspect lists the datasets the configured source can
resolve. With a dataset name it profiles every column: inferred type, null
count, distinct count, and the matched date layout. With --against it also
suggests join key candidates shared with a second dataset.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg := currentConfig()
			resolver, err := openResolver(appCfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := resolver.Names(cmd.Context())
				if err != nil {
					return err
				}
				for _, n := range names {
					_, _ = fmt.Fprintln(out, n)
				}
				return nil
			}

			t, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rep := schema.Inspect(t)

			cols := []string{"column", "type", "nulls", "distinct", "date_format"}
			rows := make([]map[string]any, 0, len(rep.Columns))
			for _, p := range rep.Columns {
				rows = append(rows, map[string]any{
					"column":      p.Name,
					"type":        string(p.Type),
					"nulls":       float64(p.NullCount),
					"distinct":    float64(p.DistinctCount),
					"date_format": p.DateFormat,
				})
			}
			if err := renderRows(out, cols, rows, appCfg.Output); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%d rows\n", rep.RowCount)

			if suggestAgainst != "" {
				other, err := resolver.Resolve(cmd.Context(), suggestAgainst)
				if err != nil {
					return err
				}
				left, right, ok := schema.SuggestJoinKeys(t.ColumnNames(), other.ColumnNames())
				if !ok {
					_, _ = fmt.Fprintf(out, "no join key candidate against %s\n", suggestAgainst)
					return nil
				}
				_, _ = fmt.Fprintf(out, "suggested join key against %s: %s = %s\n", suggestAgainst, left, right)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suggestAgainst, "against", "", "Suggest join keys shared with this dataset")
	return cmd
}
