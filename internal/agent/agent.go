// File: internal/agent/agent.go

// Package agent wires the gate, window authority, perception pipeline, and
// executor into one supervised loop. The controller owns the shared state
// records for the lifetime of a run and is the only component that talks to
// all the others.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/deskpilot/internal/cleanup"
	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/eventlog"
	"github.com/xkilldash9x/deskpilot/internal/executor"
	"github.com/xkilldash9x/deskpilot/internal/gate"
	"github.com/xkilldash9x/deskpilot/internal/state"
	"github.com/xkilldash9x/deskpilot/internal/vision"
	"github.com/xkilldash9x/deskpilot/internal/winauth"
)

// State is the controller's externally visible condition.
type State string

const (
	StateIdle      State = "idle"
	StateObserving State = "observing"
	StateExecuting State = "executing"
	StatePaused    State = "paused"
)

// Status is published to the shared status record every loop iteration.
type Status struct {
	State    State          `json:"state"`
	Phase    executor.Phase `json:"phase"`
	Gate     gate.Snapshot  `json:"gate"`
	Goal     string         `json:"goal,omitempty"`
	UpdateAt time.Time      `json:"update_at"`
}

// Controller owns one agent run.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger

	gate    *gate.Gate
	auth    winauth.Authority
	store   *state.Store
	watcher *state.Watcher
	events  eventlog.Logger
	exec    *executor.Executor
	sweeper *cleanup.Sweeper

	// limiter paces observation and goal work so the agent never spins the
	// capture path flat out.
	limiter *rate.Limiter

	st State
}

// New assembles a production controller. The authority is injected so the
// non-Windows stub and test fakes share this path.
func New(cfg *config.Config, auth winauth.Authority, logger *zap.Logger) *Controller {
	store := state.NewStore(cfg.State.Dir)
	events := eventlog.NewFileLogger(cfg.State.EventLogFile)

	g := gate.New(cfg.Gate, logger,
		gate.WithOwnershipCheck(store.OwnershipCheck(cfg.Gate.Owner, cfg.Gate.OwnerStaleAfter)),
		gate.WithPauseSink(store.SavePause),
	)
	// A pause left behind by a previous run still binds, unless it went stale.
	if store.LoadPause(cfg.State.PauseStale) {
		g.SetPaused(true)
	}

	target := winauth.FocusTarget{
		TitleContains: cfg.Target.TitleContains,
		ProcessName:   cfg.Target.ProcessName,
		ClassContains: cfg.Target.ClassContains,
	}
	exec := executor.New(cfg.Executor, target, executor.Deps{
		Gate:      g,
		Authority: auth,
		Capturer:  vision.NewScreenCapturer(cfg.Capture, logger),
		Analyzer:  vision.NewPipeline(cfg.Vision, logger),
		Events:    events,
	}, logger)
	exec.SetPeer(winauth.FocusTarget{
		TitleContains: cfg.Target.PeerTitle,
		ProcessName:   cfg.Target.PeerProcessName,
	})

	return &Controller{
		cfg:     cfg,
		logger:  logger.Named("agent"),
		gate:    g,
		auth:    auth,
		store:   store,
		watcher: state.NewWatcher(store, logger),
		events:  events,
		exec:    exec,
		sweeper: cleanup.NewSweeper(cfg.Cleanup, []string{cfg.Capture.DebugDir}, events, logger),
		limiter: rate.NewLimiter(rate.Limit(cfg.Agent.ObservationsPerSecond), 1),
		st:      StateIdle,
	}
}

// Gate exposes the action gate for command surfaces (pause/resume/status).
func (c *Controller) Gate() *gate.Gate { return c.gate }

// Store exposes the shared state records.
func (c *Controller) Store() *state.Store { return c.store }

// Run executes the goal list in order, then returns. The state watcher and
// the cleanup sweeper run alongside for the duration.
func (c *Controller) Run(ctx context.Context, goals []executor.Goal) error {
	if len(goals) == 0 {
		return fmt.Errorf("no goals to execute")
	}

	c.store.SetOwner(c.cfg.Gate.Owner)
	defer c.store.SetOwner("")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(runCtx)
	eg.Go(func() error {
		return c.watcher.Run(egCtx, c.cfg.State.PauseStale, c.gate.SetPaused)
	})
	eg.Go(func() error {
		return c.sweeper.Run(egCtx)
	})
	eg.Go(func() error {
		defer cancel()
		return c.executeGoals(egCtx, goals)
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	c.setState(StateIdle, "")
	c.publishStatus("")
	return err
}

func (c *Controller) executeGoals(ctx context.Context, goals []executor.Goal) error {
	for i, goal := range goals {
		// Pause holds the loop here, between goals, never mid-action.
		for c.gate.Paused() {
			c.setState(StatePaused, string(goal.Kind))
			c.publishStatus(string(goal.Kind))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		c.setState(StateObserving, string(goal.Kind))
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		c.setState(StateExecuting, string(goal.Kind))
		c.publishStatus(string(goal.Kind))
		res := c.exec.Run(ctx, goal)
		if !res.OK {
			if res.Reason == executor.ReasonCancelled && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("goal %d/%d (%s) failed: %s: %s",
				i+1, len(goals), goal.Kind, res.Reason, res.Detail)
		}
		c.logger.Info("goal complete",
			zap.Int("index", i+1),
			zap.Int("total", len(goals)),
			zap.String("kind", string(goal.Kind)))
	}
	return nil
}

func (c *Controller) setState(st State, goal string) {
	if c.st == st {
		return
	}
	c.st = st
	c.events.Log("agent_state", map[string]any{"state": string(st), "goal": goal})
}

func (c *Controller) publishStatus(goal string) {
	c.store.SaveStatus(Status{
		State:    c.st,
		Phase:    c.exec.Phase(),
		Gate:     c.gate.Snapshot(),
		Goal:     goal,
		UpdateAt: time.Now(),
	})
}
