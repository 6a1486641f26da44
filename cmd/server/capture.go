package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagCaptureShogun bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Print a one-shot capture of the agent panes",
	Long: `Capture every pane of the multiagent session once and print it to stdout,
each pane under a "== <id> ==" header. With --shogun only the shogun pane is
printed. Output is sanitized the same way the server streams it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src := newSource(cfg)

		if flagCaptureShogun {
			text, err := src.CaptureShogun(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to capture shogun pane: %w", err)
			}
			fmt.Fprintln(os.Stdout, text)
			return nil
		}

		panes, err := src.CaptureAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to capture panes: %w", err)
		}
		if len(panes) == 0 {
			fmt.Fprintf(os.Stderr, "no panes in session %q\n", cfg.Tmux.MultiagentSession)
			return nil
		}
		for _, p := range panes {
			fmt.Fprintf(os.Stdout, "== %s ==\n%s\n", p.ID, p.Text)
			if p.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", p.ID, p.Err)
			}
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&flagCaptureShogun, "shogun", false, "capture the shogun pane instead of the agents")
	rootCmd.AddCommand(captureCmd)
}
