package main

import (
	"fmt"
	"os"

	"qestudio/internal/config"
	"qestudio/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qestudio",
	Short: "qestudio - consistent Quantum ESPRESSO input files",
	Long: `qestudio reads, edits and checks pw.x / dos.x / projwfc.x input files.

Every edit runs through the consistency rules (spin, Hubbard, DOS broadening,
MD integrator, species inventory), so the written file never carries two
spellings of the same setting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseJournal()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// setup resolves the workspace, starts file logging and loads the config.
func setup() error {
	if workspace == "" {
		ws, err := config.FindWorkspaceRoot()
		if err != nil {
			return fmt.Errorf("failed to find workspace: %w", err)
		}
		workspace = ws
	}

	if err := logging.Initialize(workspace); err != nil {
		logger.Warn("File logging unavailable", zap.Error(err))
	}
	logging.Boot("qestudio starting in %s", workspace)

	loaded, err := loadConfig(config.DefaultPath(workspace))
	if err != nil {
		return err
	}
	cfg = loaded

	if cfg.Logging.DebugMode && !logging.IsDebugMode() {
		// QESTUDIO_DEBUG turns debug on without a config file.
		if err := logging.EnableDebug(workspace, cfg.Logging.Level, cfg.Logging.Categories); err != nil {
			logger.Warn("Debug logging unavailable", zap.Error(err))
		}
		logging.Boot("debug logging enabled from the environment")
	}
	for _, cat := range logging.AllCategories {
		if cfg.Logging.DebugMode && !cfg.Logging.IsCategoryEnabled(string(cat)) {
			logging.Boot("category %s disabled by config", cat)
		}
	}
	if logging.IsDebugMode() {
		if err := logging.InitJournal(); err != nil {
			logging.BootWarn("journal unavailable: %v", err)
			logger.Warn("Journal unavailable", zap.Error(err))
		}
	}

	logger.Debug("Workspace resolved",
		zap.String("path", workspace),
		zap.Bool("debug_mode", logging.IsDebugMode()))
	return nil
}

// loadConfig reads and validates the workspace config.
func loadConfig(path string) (*config.Config, error) {
	loaded, err := config.Load(path)
	if err != nil {
		logging.ConfigError("load %s: %v", path, err)
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		logging.ConfigError("validate %s: %v", path, err)
		return nil, err
	}
	logging.Config("loaded %s: %d pseudo dirs, index %s, default degauss %g",
		path, len(loaded.Pseudo.Dirs), loaded.Pseudo.IndexPath, loaded.DOS.DefaultDegauss)
	return loaded, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest .qestudio)")

	// Input commands
	showCmd.Flags().BoolVar(&showShadows, "shadows", false, "Also print rule-private shadow values to stderr")
	editCmd.Flags().StringArrayVar(&editSets, "set", nil, "Assign namelist.key=value (repeatable)")
	editCmd.Flags().StringArrayVar(&editRemoves, "remove", nil, "Remove namelist.key (repeatable)")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "Write result here instead of stdout")

	// Pseudopotential subcommands
	pseudoCmd.AddCommand(pseudoScanCmd)
	pseudoCmd.AddCommand(pseudoResolveCmd)
	pseudoCmd.AddCommand(pseudoWatchCmd)

	// Add commands to root
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(pseudoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
