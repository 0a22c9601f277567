// File: cmd/cleanup.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/deskpilot/internal/cleanup"
	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/eventlog"
	"github.com/xkilldash9x/deskpilot/internal/observability"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep aged debug captures once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewRawConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		sweeper := cleanup.NewSweeper(cfg.Cleanup,
			[]string{cfg.Capture.DebugDir},
			eventlog.NewFileLogger(cfg.State.EventLogFile),
			observability.GetLogger())
		fmt.Printf("removed %d file(s)\n", sweeper.Sweep())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
