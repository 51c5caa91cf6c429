package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/effluent-cli/internal/session"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <session-name>",
	Short: "Start a new measurement session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, err := resolveSessionDirByName(name)
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing session.
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(dir, utils.SessionFileName)); err == nil {
				return fmt.Errorf("session already exists at %s", dir)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("inspect session directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize session", dir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat session directory: %w", err)
		}
		mode, err := selectedMode()
		if err != nil {
			return err
		}
		s := session.New(name, mode, dir)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Session initialized: %s (%s pH)\n", dir, mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
