// Package wizard drives a multi-step quick-apply dialog to a terminal state.
//
// Every step probes three controls in a fixed priority order: Submit, Next,
// Review. A control counts only when it is present and enabled. A disabled
// control and a missing one are treated the same, so a Submit button that is
// still rendering falls through to Next/Review and may end the attempt as
// Abandoned early.
package wizard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/utils"
)

// DefaultMaxSteps bounds the number of steps of a single attempt.
const DefaultMaxSteps = 5

// State of an application attempt.
type State int

const (
	AwaitingAction State = iota
	Submitted
	Abandoned
)

func (s State) String() string {
	switch s {
	case AwaitingAction:
		return "awaiting_action"
	case Submitted:
		return "submitted"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Selectors locate the wizard controls. All are XPath expressions.
type Selectors struct {
	Submit  string `mapstructure:"submit"`
	Next    string `mapstructure:"next"`
	Review  string `mapstructure:"review"`
	Success string `mapstructure:"success"`
}

// DefaultSelectors returns selectors for the default job site.
func DefaultSelectors() Selectors {
	return Selectors{
		Submit:  "//button[contains(@aria-label, 'Submit application')]",
		Next:    "//button[contains(@aria-label, 'Continue to next step')]",
		Review:  "//button[contains(@aria-label, 'Review your application')]",
		Success: "//h3[contains(text(), 'Application submitted')]",
	}
}

// Attempt is the transient record of one run of the machine.
type Attempt struct {
	Steps int
	State State
}

// Config configures a Machine.
type Config struct {
	Selectors Selectors
	// Settle is the pause after every click.
	Settle time.Duration
	// MaxSteps defaults to DefaultMaxSteps.
	MaxSteps int
}

// Machine runs attempts. It holds no per-attempt state and can be reused.
type Machine struct {
	sel      Selectors
	settle   time.Duration
	maxSteps int
	logger   *zap.Logger
}

// New creates a Machine.
func New(cfg Config, logger *zap.Logger) *Machine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		sel:      cfg.Selectors,
		settle:   cfg.Settle,
		maxSteps: cfg.MaxSteps,
		logger:   logger,
	}
}

type control struct {
	name     string
	selector string
}

// Run drives the wizard opened in d until it is submitted, no control is
// left or the step cap is hit. Missing controls are not errors. A non-nil
// error means the driver failed mid-flow; the attempt is then Abandoned.
func (m *Machine) Run(ctx context.Context, d driver.Driver) (Attempt, error) {
	attempt := Attempt{State: AwaitingAction}
	controls := []control{
		{name: "submit", selector: m.sel.Submit},
		{name: "next", selector: m.sel.Next},
		{name: "review", selector: m.sel.Review},
	}

	for attempt.Steps < m.maxSteps {
		attempt.Steps++

		clicked, err := m.clickFirst(ctx, d, controls)
		if err != nil {
			attempt.State = Abandoned
			return attempt, err
		}

		m.logger.Debug("wizard step",
			zap.Int("step", attempt.Steps),
			zap.String("control", clicked),
		)

		switch clicked {
		case "submit":
			ok, err := m.submitted(ctx, d)
			if err != nil {
				attempt.State = Abandoned
				return attempt, err
			}
			if ok {
				attempt.State = Submitted
				return attempt, nil
			}
		case "":
			ok, err := m.submitted(ctx, d)
			if err != nil {
				attempt.State = Abandoned
				return attempt, err
			}
			if ok {
				attempt.State = Submitted
			} else {
				attempt.State = Abandoned
			}
			return attempt, nil
		}
	}

	m.logger.Debug("wizard step cap reached", zap.Int("max_steps", m.maxSteps))
	attempt.State = Abandoned
	return attempt, nil
}

// clickFirst clicks the first present and enabled control and waits for the
// page to settle. It returns the control name or "" when none qualified.
// A disabled control is skipped like a missing one, so a Submit that is still
// rendering falls through to Next or Review and may end the attempt early.
func (m *Machine) clickFirst(ctx context.Context, d driver.Driver, controls []control) (string, error) {
	for _, c := range controls {
		if c.selector == "" {
			continue
		}

		el, err := d.Locate(ctx, c.selector, nil)
		if driver.IsAbsent(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("locate %s: %w", c.name, err)
		}

		enabled, err := d.IsEnabled(ctx, el)
		if driver.IsAbsent(err) || (err == nil && !enabled) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("check %s: %w", c.name, err)
		}

		if err := d.Click(ctx, el); err != nil {
			return "", fmt.Errorf("click %s: %w", c.name, err)
		}
		if err := utils.WaitFor(ctx, m.settle); err != nil {
			return "", err
		}
		return c.name, nil
	}
	return "", nil
}

func (m *Machine) submitted(ctx context.Context, d driver.Driver) (bool, error) {
	_, err := d.Locate(ctx, m.sel.Success, nil)
	switch {
	case err == nil:
		return true, nil
	case driver.IsAbsent(err):
		return false, nil
	default:
		return false, fmt.Errorf("locate success marker: %w", err)
	}
}
