// File: cmd/status.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the shared pause, ownership, and agent status records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewRawConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		store := state.NewStore(cfg.State.Dir)

		paused := store.LoadPause(cfg.State.PauseStale)
		fmt.Printf("paused: %v\n", paused)

		marker := store.LoadMarker()
		if marker.Owner == "" {
			fmt.Println("owner: (none)")
		} else {
			stale := ""
			if marker.Stale(cfg.Gate.OwnerStaleAfter, time.Now()) {
				stale = " (stale)"
			}
			fmt.Printf("owner: %s%s\n", marker.Owner, stale)
		}

		if raw := store.LoadStatusRaw(); raw != nil {
			fmt.Printf("agent: %s\n", raw)
		} else {
			fmt.Println("agent: no status published")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
