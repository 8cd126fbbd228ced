package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/paths"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [roots...]",
		Short: "Scaffold a config/settings.json with sensible defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			var layout *paths.Layout
			var err error
			if dataDirFlag != "" {
				layout, err = paths.ResolveUnder(dataDirFlag)
			} else {
				layout, err = paths.Resolve()
			}
			if err != nil {
				return fmt.Errorf("resolve data directory: %w", err)
			}
			if err := layout.EnsureDirs(); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}

			if !force {
				if existing, loadErr := config.Load(layout.SettingsPath); loadErr == nil && len(existing.Paths.Roots) > 0 {
					return fmt.Errorf("%s already configured; pass --force to overwrite", layout.SettingsPath)
				}
			}

			settings := config.New()
			settings.Paths.Roots = args

			if err := config.Save(layout.SettingsPath, settings); err != nil {
				return fmt.Errorf("write settings: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", layout.SettingsPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings.json")
	return cmd
}
