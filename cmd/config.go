package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	cfgpkg "github.com/KaramelBytes/effluent-cli/internal/config"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Effluent configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("default_mode: %s\n", cfg.DefaultMode)
		if cfg.CatalogPath != "" {
			fmt.Printf("catalog_path: %s\n", cfg.CatalogPath)
		} else {
			fmt.Println("catalog_path: (built-in)")
		}
		fmt.Printf("sessions_dir: %s\n", cfg.SessionsDir)
		fmt.Printf("history_enabled: %t\n", cfg.HistoryEnabled)
		fmt.Printf("history_path: %s\n", cfg.HistoryPath)
		fmt.Printf("output_format: %s\n", cfg.OutputFormat)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "default_mode":
			m, err := catalog.ParseMode(val)
			if err != nil {
				return err
			}
			cfg.DefaultMode = string(m)
		case "catalog_path":
			if val != "" {
				if _, err := catalog.LoadFile(val); err != nil {
					return fmt.Errorf("catalog_path: %w", err)
				}
			}
			cfg.CatalogPath = val
		case "sessions_dir":
			cfg.SessionsDir = val
		case "history_enabled":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for history_enabled: %v", val)
			}
			cfg.HistoryEnabled = b
		case "history_path":
			cfg.HistoryPath = val
		case "output_format":
			f, err := report.ParseFormat(val)
			if err != nil {
				return err
			}
			cfg.OutputFormat = string(f)
		case "server_addr":
			cfg.ServerAddr = val
		case "log_level":
			if _, err := zapcore.ParseLevel(val); err != nil {
				return fmt.Errorf("invalid log_level: %w", err)
			}
			cfg.LogLevel = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
