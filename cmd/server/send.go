package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Type a command into the shogun pane",
	Long: `Send text to the shogun pane as literal keystrokes followed by Enter.
Multiple arguments are joined with spaces.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		if err := newSource(cfg).SendToShogun(cmd.Context(), text); err != nil {
			return fmt.Errorf("failed to send command: %w", err)
		}
		return nil
	},
}

var keyCmd = &cobra.Command{
	Use:   "key <name>",
	Short: "Press a special key in the shogun pane",
	Long: `Send one allowlisted key (Escape, Enter, Tab, BTab, Up, Down, Left, Right,
Space, BSpace, 0-9, y, n) to the shogun pane.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := newSource(cfg).SendSpecialKey(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to send key: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(keyCmd)
}
