// Package cmd provides the localfinderx CLI commands.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/logging"
	"github.com/localfinderx/localfinderx/pkg/version"
)

var (
	dataDirFlag string
	debugMode   bool
	noModel     bool
	loggingDone func()
)

// NewRootCmd builds the localfinderx root command and its subcommand
// tree: init, index, search, status, watch, doctor.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "localfinderx",
		Short:   "Offline hybrid file search over local documents",
		Long: `LocalFinderX indexes local office documents (Word, PowerPoint, Excel,
PDF, Markdown) and everything else on the selected folders, then serves
hybrid dense + lexical search with file-level evidence — entirely
offline, with no network calls at any point.`,
		Version: version.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("localfinderx version {{.Version}}\n")

	root.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the app-data directory (default: OS-specific app-data location)")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the logs/ directory")
	root.PersistentFlags().BoolVar(&noModel, "offline", false, "Use the deterministic fallback embedder instead of loading an ONNX model")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := logging.DefaultConfig()
		if debugMode {
			cfg = logging.DebugConfig()
		}
		logger, cleanup, err := logging.Setup(cfg)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		loggingDone = cleanup
		slog.SetDefault(logger)
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if loggingDone != nil {
			loggingDone()
			loggingDone = nil
		}
		return nil
	}

	root.AddCommand(newInitCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newDoctorCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
