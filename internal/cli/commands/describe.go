package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tableforge-labs/tableforge/internal/export"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "describe <config.yaml>",
		Short: "Write the reviewable artifact for a transform config",
		Long: `Describe resolves every dataset a config references and renders a
deterministic YAML artifact: schemas, join plan, filter columns, computed
outputs, and the config fingerprint. The artifact is stable across runs and
suitable for version control.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg := currentConfig()
			cfg, err := loadTransform(args[0])
			if err != nil {
				return err
			}
			resolver, err := openResolver(appCfg)
			if err != nil {
				return err
			}

			artifact, err := export.Describe(cmd.Context(), resolver, cfg)
			if err != nil {
				return err
			}

			if outPath == "" {
				return artifact.WriteYAML(cmd.OutOrStdout())
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := artifact.WriteYAML(f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Write the artifact to a file instead of stdout")
	return cmd
}
