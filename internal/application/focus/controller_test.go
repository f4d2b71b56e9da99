package focus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

var hideOnSuccess = domain.VisibilitySettings{HideAfterSuccess: true, RestoreFocus: true}

func setup(t *testing.T) (*Controller, *fakes.Host, domain.TerminalRef, domain.TerminalRef) {
	t.Helper()
	host := fakes.NewHost()
	user := host.AddTerminal("@user")
	own := host.AddTerminal("@fif")
	host.SetActive(user)
	c := New(host, fakes.Logger{})
	c.Remember(context.Background(), own)
	return c, host, user, own
}

func TestRestoreThenHideOnOwnSwitch(t *testing.T) {
	c, host, user, _ := setup(t)
	ctx := context.Background()

	assert.True(t, c.OnCompletion(ctx, domain.VerdictSuccess, hideOnSuccess))
	assert.Equal(t, SwitchPending, c.State())
	assert.Equal(t, []string{user.ID}, host.Shown)

	c.OnActiveTerminalChanged(ctx, user)
	assert.Equal(t, []string{user.ID}, host.Hidden)
	assert.Equal(t, Idle, c.State())
	_, ok := c.Previous()
	assert.False(t, ok)

	// consumed once
	c.OnActiveTerminalChanged(ctx, user)
	assert.Len(t, host.Hidden, 1)
}

func TestNoHideWhenPolicyKeepsTerminal(t *testing.T) {
	c, host, user, _ := setup(t)
	ctx := context.Background()

	assert.True(t, c.OnCompletion(ctx, domain.VerdictFailure, hideOnSuccess))
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, []string{user.ID}, host.Shown)

	c.OnActiveTerminalChanged(ctx, user)
	assert.Empty(t, host.Hidden)
}

func TestIgnoresOtherTerminals(t *testing.T) {
	c, host, _, own := setup(t)
	ctx := context.Background()

	c.OnCompletion(ctx, domain.VerdictSuccess, hideOnSuccess)
	c.OnActiveTerminalChanged(ctx, own)
	assert.Empty(t, host.Hidden)
	assert.Equal(t, SwitchPending, c.State())
}

func TestIdleIgnoresChanges(t *testing.T) {
	c, host, user, _ := setup(t)
	c.OnActiveTerminalChanged(context.Background(), user)
	assert.Empty(t, host.Hidden)
	assert.Equal(t, Idle, c.State())
}

func TestDeadPreviousTerminalFallsBack(t *testing.T) {
	c, host, user, _ := setup(t)
	host.Kill(user.ID)

	assert.False(t, c.OnCompletion(context.Background(), domain.VerdictSuccess, hideOnSuccess))
	assert.Empty(t, host.Shown)
	assert.Equal(t, Idle, c.State())
}

func TestRememberSkipsOwnTerminal(t *testing.T) {
	host := fakes.NewHost()
	own := host.AddTerminal("@fif")
	host.SetActive(own)
	c := New(host, fakes.Logger{})

	c.Remember(context.Background(), own)
	_, ok := c.Previous()
	assert.False(t, ok)
}

func TestRememberForgetsEarlierTerminal(t *testing.T) {
	c, host, _, own := setup(t)
	ctx := context.Background()

	host.SetActive(domain.TerminalRef{})
	c.Remember(ctx, own)
	_, ok := c.Previous()
	assert.False(t, ok)

	assert.False(t, c.OnCompletion(ctx, domain.VerdictSuccess, hideOnSuccess))
	assert.Empty(t, host.Shown)
}
