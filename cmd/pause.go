// File: cmd/pause.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/state"
)

// pause/resume write the shared pause record; a running agent picks the
// change up through its state watcher before its next action.

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause a running agent by writing the shared pause record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(false)
	},
}

func setPaused(paused bool) error {
	cfg, err := config.NewRawConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	state.NewStore(cfg.State.Dir).SavePause(paused)
	fmt.Printf("paused: %v\n", paused)
	return nil
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}
