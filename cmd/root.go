package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	cfgpkg "github.com/KaramelBytes/effluent-cli/internal/config"
	"github.com/KaramelBytes/effluent-cli/internal/history"
	"github.com/KaramelBytes/effluent-cli/internal/session"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagMode    string
	flagCatalog string

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "effluent",
	Short: "Effluent: check wastewater analytes against electrolyser feed limits",
	Long: `Effluent classifies measured wastewater concentrations against per-analyte action
and escalation levels for alkaline or neutral pH electrolysis and tells you whether
the water is fit to feed green hydrogen production.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.effluent/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "pH mode: Alkaline or Neutral (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "threshold file (.yaml, .json, .csv, .tsv, .xlsx) instead of the built-in tables")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// newLogger builds a production zap logger on stderr at the configured level.
func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	level := zapcore.InfoLevel
	if cfg != nil && cfg.LogLevel != "" {
		l, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		level = l
	}
	if debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// loadCatalog returns the threshold catalog from --catalog, catalog_path, or
// the built-in tables, in that order.
func loadCatalog() (*catalog.Catalog, error) {
	path := flagCatalog
	if path == "" && cfg != nil {
		path = cfg.CatalogPath
	}
	if path == "" {
		return catalog.Default()
	}
	path, err := utils.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded", zap.String("path", path))
	return c, nil
}

// selectedMode resolves --mode, then default_mode, then the built-in default.
func selectedMode() (catalog.Mode, error) {
	if flagMode != "" {
		return catalog.ParseMode(flagMode)
	}
	if cfg != nil && cfg.DefaultMode != "" {
		return catalog.ParseMode(cfg.DefaultMode)
	}
	return catalog.DefaultMode, nil
}

func activeTable(mode catalog.Mode) (*catalog.Table, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.Resolve(mode)
}

func defaultSessionsDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.SessionsDir
	}
	if dir == "" {
		base, err := cfgpkg.Dir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "sessions")
	}
	dir, err := utils.ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveSessionDirByName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("session name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	root, err := defaultSessionsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// openSession loads the named session, or the one enclosing the working
// directory when name is empty.
func openSession(name string) (*session.Session, error) {
	if name == "" {
		dir, err := utils.FindSessionRoot("")
		if err != nil {
			return nil, errors.New("no session given; use -s <name> or run inside a session directory")
		}
		return session.Load(dir)
	}
	dir, err := resolveSessionDirByName(name)
	if err != nil {
		return nil, err
	}
	return session.Load(dir)
}

// openHistory returns nil when history is disabled.
func openHistory() (*history.Store, error) {
	if cfg == nil || !cfg.HistoryEnabled || cfg.HistoryPath == "" {
		return nil, nil
	}
	path, err := utils.ExpandHome(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	return history.Open(path, logger)
}
