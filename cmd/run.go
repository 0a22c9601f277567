// File: cmd/run.go
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/agent"
	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/executor"
	"github.com/xkilldash9x/deskpilot/internal/observability"
	"github.com/xkilldash9x/deskpilot/internal/winauth"
)

var (
	runPrompt  string
	runExpect  string
	runControl string
	runCopy    bool
	runWait    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a goal sequence against the configured target application",
	Long: `Run activates the target window and executes the requested goals in
order: activate a named control, type and submit a prompt, wait for expected
content, or copy the focused content out. Every action is verified before the
next one starts; the first unverified action aborts the sequence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		goals, err := buildGoals()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctrl := agent.New(cfg, winauth.NewAuthority(logger), logger)
		if err := ctrl.Run(ctx, goals); err != nil {
			return err
		}
		logger.Info("All goals completed", zap.Int("goals", len(goals)))
		return nil
	},
}

// buildGoals translates the flag set into an ordered goal list.
func buildGoals() ([]executor.Goal, error) {
	var goals []executor.Goal
	if runControl != "" {
		goals = append(goals, executor.Goal{Kind: executor.GoalActivateControl, Control: runControl})
	}
	if runPrompt != "" {
		goals = append(goals, executor.Goal{Kind: executor.GoalTypeAndSubmit, Text: runPrompt})
	}
	if runWait {
		goals = append(goals, executor.Goal{Kind: executor.GoalWaitForContent, Expect: runExpect})
	}
	if runCopy {
		goals = append(goals, executor.Goal{Kind: executor.GoalCopyContent, Expect: runExpect})
	}
	if len(goals) == 0 {
		return nil, fmt.Errorf("nothing to do: pass at least one of --control, --prompt, --wait, --copy")
	}
	return goals, nil
}

func init() {
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "text to type and submit into the target input")
	runCmd.Flags().StringVar(&runExpect, "expect", "", "content fragment that must appear for --wait/--copy verification")
	runCmd.Flags().StringVar(&runControl, "control", "", "template label of a control to activate first")
	runCmd.Flags().BoolVar(&runCopy, "copy", false, "copy the focused content out after the other goals")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "wait for the expected content to appear")
	rootCmd.AddCommand(runCmd)
}
