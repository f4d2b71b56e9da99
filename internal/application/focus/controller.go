// Package focus returns input focus to the terminal that was active before a
// command ran, without acting on focus changes the user caused.
package focus

import (
	"context"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// State of the controller.
type State int

const (
	Idle State = iota
	SwitchPending
)

func (s State) String() string {
	if s == SwitchPending {
		return "switch-pending"
	}
	return "idle"
}

// Controller holds a weak reference to the previously active terminal. The
// reference is checked for liveness before every use.
type Controller struct {
	host   ports.TerminalHost
	logger ports.Logger

	state    State
	previous domain.TerminalRef
	caused   bool
}

// New creates an idle controller.
func New(host ports.TerminalHost, logger ports.Logger) *Controller {
	return &Controller{host: host, logger: logger}
}

// Remember records the terminal that has focus before the session terminal
// is shown, replacing any earlier one. own is the session terminal, which is
// never remembered; with no other terminal active nothing is restored later.
func (c *Controller) Remember(ctx context.Context, own domain.TerminalRef) {
	ref, ok := c.host.ActiveTerminal(ctx)
	if !ok || ref.ID == own.ID {
		c.previous = domain.TerminalRef{}
		return
	}
	c.previous = ref
}

// Previous returns the remembered terminal.
func (c *Controller) Previous() (domain.TerminalRef, bool) {
	return c.previous, !c.previous.IsZero()
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// OnCompletion handles a verdict when focus restoring is enabled. It reports
// false when no live previous terminal exists, in which case the caller
// applies the visibility policy itself.
func (c *Controller) OnCompletion(ctx context.Context, verdict domain.Verdict, vis domain.VisibilitySettings) bool {
	if c.previous.IsZero() {
		return false
	}
	if !c.host.Alive(ctx, c.previous) {
		c.logger.Debug("Previous terminal is gone", map[string]interface{}{"terminal": c.previous.ID})
		c.reset()
		return false
	}

	if vis.ShouldHide(verdict) {
		c.state = SwitchPending
	}
	c.caused = true
	if err := c.host.Show(ctx, c.previous); err != nil {
		c.logger.Warn("failed to restore terminal focus", map[string]interface{}{"terminal": c.previous.ID, "error": err.Error()})
		c.reset()
	}
	return true
}

// OnActiveTerminalChanged consumes one host focus notification. Changes seen
// while idle, or not caused by the controller, are ignored.
func (c *Controller) OnActiveTerminalChanged(ctx context.Context, ref domain.TerminalRef) {
	if c.state != SwitchPending || !c.caused || ref.ID != c.previous.ID {
		return
	}
	if c.host.Alive(ctx, c.previous) {
		if err := c.host.Hide(ctx, c.previous); err != nil {
			c.logger.Warn("failed to hide terminal", map[string]interface{}{"terminal": c.previous.ID, "error": err.Error()})
		}
	}
	c.reset()
}

func (c *Controller) reset() {
	c.state = Idle
	c.previous = domain.TerminalRef{}
	c.caused = false
}
