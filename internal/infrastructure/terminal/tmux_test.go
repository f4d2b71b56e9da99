package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/application/focus"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

// scriptedTmux answers tmux invocations by subcommand.
type scriptedTmux struct {
	stdout map[string]string
	stderr map[string]string
	calls  [][]string
}

func newScriptedTmux() *scriptedTmux {
	return &scriptedTmux{stdout: map[string]string{}, stderr: map[string]string{}}
}

func (s *scriptedTmux) Execute(_ context.Context, name string, args ...string) (domain.ExecutionResult, error) {
	call := append([]string{name}, args...)
	s.calls = append(s.calls, call)
	sub := subcommand(args)
	if msg, ok := s.stderr[sub]; ok {
		return domain.ExecutionResult{Stderr: msg, ExitCode: 1}, errors.New("exit status 1")
	}
	return domain.ExecutionResult{Ran: true, Stdout: s.stdout[sub]}, nil
}

func (s *scriptedTmux) last(sub string) []string {
	for i := len(s.calls) - 1; i >= 0; i-- {
		if subcommand(s.calls[i][1:]) == sub {
			return s.calls[i]
		}
	}
	return nil
}

func (s *scriptedTmux) count(sub string) int {
	n := 0
	for _, call := range s.calls {
		if subcommand(call[1:]) == sub {
			n++
		}
	}
	return n
}

func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-u":
		case "-L":
			i++
		default:
			return args[i]
		}
	}
	return ""
}

func TestOpenInsideTmuxCreatesWindow(t *testing.T) {
	exec := newScriptedTmux()
	exec.stdout["new-window"] = "@7\n"
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true), WithSocket("fif-test"))

	ref, err := host.Open(context.Background(), domain.TerminalSpec{
		Name:         "FindItFaster",
		WorkDir:      "/repo",
		ShellPath:    "/bin/zsh",
		Env:          map[string]string{"B": "2", "A": "1"},
		HideFromUser: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "@7", ref.ID)

	assert.Equal(t, []string{
		"tmux", "-u", "-L", "fif-test",
		"new-window", "-P", "-F", "#{window_id}", "-n", "FindItFaster", "-d",
		"-c", "/repo", "-e", "A=1", "-e", "B=2", "/bin/zsh",
	}, exec.last("new-window"))
}

func TestOpenVisibleWindowRemembersHome(t *testing.T) {
	exec := newScriptedTmux()
	exec.stdout["new-window"] = "@7"
	exec.stdout["display-message"] = "@2"
	exec.stdout["list-windows"] = "@2\n@7\n"
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true))
	ctx := context.Background()

	ref, err := host.Open(ctx, domain.TerminalSpec{})
	require.NoError(t, err)
	assert.NotContains(t, exec.last("new-window"), "-d")

	require.NoError(t, host.Hide(ctx, ref))
	assert.Equal(t, []string{"tmux", "-u", "select-window", "-t", "@2"}, exec.last("select-window"))
}

func TestOpenOutsideTmuxFails(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(false))

	_, err := host.Open(context.Background(), domain.TerminalSpec{})
	assert.ErrorIs(t, err, ErrNotInsideTmux)
	assert.Empty(t, exec.calls)

	_, ok := host.ActiveTerminal(context.Background())
	assert.False(t, ok)
}

func TestOpenWithoutWindowID(t *testing.T) {
	host := NewTmuxHost(newScriptedTmux(), fakes.Logger{}, WithInsideTmux(true))
	_, err := host.Open(context.Background(), domain.TerminalSpec{})
	assert.Error(t, err)
}

func TestSendTextTypesLiterallyThenEnter(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{})

	require.NoError(t, host.SendText(context.Background(), domain.TerminalRef{ID: "@3"}, "a; b"))
	require.Len(t, exec.calls, 2)
	assert.Equal(t, []string{"tmux", "-u", "send-keys", "-t", "@3", "-l", "a; b"}, exec.calls[0])
	assert.Equal(t, []string{"tmux", "-u", "send-keys", "-t", "@3", "Enter"}, exec.calls[1])

	assert.ErrorIs(t, host.SendText(context.Background(), domain.TerminalRef{}, "x"), ErrUnknownRef)
}

func TestShowRemembersHomeAndHideReturns(t *testing.T) {
	exec := newScriptedTmux()
	exec.stdout["new-window"] = "@5"
	exec.stdout["display-message"] = "@1"
	exec.stdout["list-windows"] = "@1\n@5\n"
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true))
	ctx := context.Background()

	ref, err := host.Open(ctx, domain.TerminalSpec{})
	require.NoError(t, err)
	require.NoError(t, host.Show(ctx, ref))
	assert.Equal(t, []string{"tmux", "-u", "select-window", "-t", "@5"}, exec.last("select-window"))
	assert.Equal(t, domain.TerminalRef{ID: "@5"}, <-host.ActiveTerminalChanges())

	require.NoError(t, host.Hide(ctx, ref))
	assert.Equal(t, []string{"tmux", "-u", "select-window", "-t", "@1"}, exec.last("select-window"))
	assert.Equal(t, domain.TerminalRef{ID: "@1"}, <-host.ActiveTerminalChanges())
}

func TestHideWithoutHomeUsesLastWindow(t *testing.T) {
	exec := newScriptedTmux()
	exec.stdout["new-window"] = "@2"
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true))
	ctx := context.Background()

	ref, err := host.Open(ctx, domain.TerminalSpec{HideFromUser: true})
	require.NoError(t, err)
	require.NoError(t, host.Hide(ctx, ref))
	assert.Equal(t, 1, exec.count("last-window"))
}

func TestHideForeignWindowKeepsIt(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true))

	require.NoError(t, host.Hide(context.Background(), domain.TerminalRef{ID: "@1"}))
	assert.Empty(t, exec.calls)
}

func TestAliveChecksWindowList(t *testing.T) {
	exec := newScriptedTmux()
	exec.stdout["list-windows"] = "@1\n@12\n"
	host := NewTmuxHost(exec, fakes.Logger{})
	ctx := context.Background()

	assert.True(t, host.Alive(ctx, domain.TerminalRef{ID: "@12"}))
	assert.False(t, host.Alive(ctx, domain.TerminalRef{ID: "@2"}))
	assert.False(t, host.Alive(ctx, domain.TerminalRef{}))

	exec.stderr["list-windows"] = "no server running on /tmp/tmux-1000/default"
	assert.False(t, host.Alive(ctx, domain.TerminalRef{ID: "@12"}))
}

func TestMaximizeSkipsZoomedWindow(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{})
	ctx := context.Background()

	exec.stdout["display-message"] = "1"
	require.NoError(t, host.Maximize(ctx, domain.TerminalRef{ID: "@4"}))
	assert.Zero(t, exec.count("resize-pane"))

	exec.stdout["display-message"] = "0"
	require.NoError(t, host.Maximize(ctx, domain.TerminalRef{ID: "@4"}))
	assert.Equal(t, []string{"tmux", "-u", "resize-pane", "-Z", "-t", "@4"}, exec.last("resize-pane"))
}

func TestCloseAndErrorMapping(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{})
	ctx := context.Background()

	require.NoError(t, host.Close(ctx, domain.TerminalRef{ID: "@9"}))
	assert.Equal(t, []string{"tmux", "-u", "kill-window", "-t", "@9"}, exec.last("kill-window"))

	exec.stderr["kill-window"] = "can't find window: @9"
	assert.ErrorIs(t, host.Close(ctx, domain.TerminalRef{ID: "@9"}), ErrWindowNotFound)

	exec.stderr["kill-window"] = "error connecting to /tmp/tmux-0/default"
	assert.ErrorIs(t, host.Close(ctx, domain.TerminalRef{ID: "@9"}), ErrNoServer)

	exec.stderr["kill-window"] = "bad things"
	assert.EqualError(t, host.Close(ctx, domain.TerminalRef{ID: "@9"}), "tmux kill-window: bad things")
}

func TestAvailable(t *testing.T) {
	exec := newScriptedTmux()
	host := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(true))
	assert.True(t, host.Available(context.Background()))

	exec.stderr["-V"] = "not found"
	assert.False(t, host.Available(context.Background()))

	delete(exec.stderr, "-V")
	outside := NewTmuxHost(exec, fakes.Logger{}, WithInsideTmux(false))
	assert.False(t, outside.Available(context.Background()))
}

// windowServer models the window list and selection of one tmux client.
type windowServer struct {
	windows  []string
	current  string
	previous string
	next     int
}

func (w *windowServer) Execute(_ context.Context, _ string, args ...string) (domain.ExecutionResult, error) {
	sub := subcommand(args)
	switch sub {
	case "new-window":
		w.next++
		id := fmt.Sprintf("@%d", w.next)
		w.windows = append(w.windows, id)
		detached := false
		for _, a := range args {
			detached = detached || a == "-d"
		}
		if !detached {
			w.selectWindow(id)
		}
		return domain.ExecutionResult{Ran: true, Stdout: id + "\n"}, nil
	case "select-window":
		w.selectWindow(args[len(args)-1])
	case "last-window":
		w.selectWindow(w.previous)
	case "display-message":
		return domain.ExecutionResult{Ran: true, Stdout: w.current}, nil
	case "list-windows":
		return domain.ExecutionResult{Ran: true, Stdout: strings.Join(w.windows, "\n")}, nil
	}
	return domain.ExecutionResult{Ran: true}, nil
}

func (w *windowServer) selectWindow(id string) {
	if id == "" || id == w.current {
		return
	}
	w.previous, w.current = w.current, id
}

func TestFocusRestoreEndsOnUserWindow(t *testing.T) {
	server := &windowServer{windows: []string{"@1"}, current: "@1", next: 4}
	host := NewTmuxHost(server, fakes.Logger{}, WithInsideTmux(true))
	ctrl := focus.New(host, fakes.Logger{})
	ctx := context.Background()

	ref, err := host.Open(ctx, domain.TerminalSpec{HideFromUser: true})
	require.NoError(t, err)
	require.Equal(t, "@5", ref.ID)
	assert.Equal(t, "@1", server.current)

	ctrl.Remember(ctx, ref)
	require.NoError(t, host.Show(ctx, ref))
	assert.Equal(t, "@5", server.current)
	assert.Equal(t, ref, <-host.ActiveTerminalChanges())

	vis := domain.VisibilitySettings{HideAfterSuccess: true, RestoreFocus: true}
	require.True(t, ctrl.OnCompletion(ctx, domain.VerdictSuccess, vis))
	assert.Equal(t, "@1", server.current)
	assert.Equal(t, focus.SwitchPending, ctrl.State())

	ctrl.OnActiveTerminalChanged(ctx, <-host.ActiveTerminalChanges())
	assert.Equal(t, "@1", server.current)
	assert.Equal(t, focus.Idle, ctrl.State())
}
