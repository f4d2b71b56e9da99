// Package terminal provides terminal host adapters.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Common errors
var (
	ErrNoServer       = errors.New("no tmux server running")
	ErrUnknownRef     = errors.New("terminal reference is empty")
	ErrWindowNotFound = errors.New("window not found")
	ErrNotInsideTmux  = errors.New("not inside a tmux client: start fif from a tmux pane")
)

// TmuxHost runs the session terminal in a window of the tmux session the
// caller is attached to. Without a client ($TMUX unset) nobody could see the
// window, so the host refuses to open one.
type TmuxHost struct {
	exec   ports.CommandExecutor
	logger ports.Logger
	socket string
	inTmux bool

	mu      sync.Mutex
	home    string
	owned   map[string]bool
	changes chan domain.TerminalRef
}

// TmuxOption customizes a TmuxHost.
type TmuxOption func(*TmuxHost)

// WithSocket targets a named tmux server (-L).
func WithSocket(name string) TmuxOption {
	return func(h *TmuxHost) { h.socket = name }
}

// WithInsideTmux overrides the $TMUX detection.
func WithInsideTmux(inside bool) TmuxOption {
	return func(h *TmuxHost) { h.inTmux = inside }
}

// NewTmuxHost builds a host that shells out to tmux through exec.
func NewTmuxHost(exec ports.CommandExecutor, logger ports.Logger, opts ...TmuxOption) *TmuxHost {
	h := &TmuxHost{
		exec:    exec,
		logger:  logger,
		inTmux:  os.Getenv("TMUX") != "",
		owned:   make(map[string]bool),
		changes: make(chan domain.TerminalRef, 8),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ports.TerminalHost.
func (h *TmuxHost) Name() string { return "tmux" }

// Available reports whether fif runs inside a tmux client and the tmux
// binary answers.
func (h *TmuxHost) Available(ctx context.Context) bool {
	if !h.inTmux {
		h.logger.Debug("tmux unavailable", map[string]interface{}{"error": ErrNotInsideTmux.Error()})
		return false
	}
	_, err := h.exec.Execute(ctx, "tmux", "-V")
	return err == nil
}

// Open creates a window and returns its window id. A terminal hidden
// from the user is created in the background until Show brings it forward.
func (h *TmuxHost) Open(ctx context.Context, spec domain.TerminalSpec) (domain.TerminalRef, error) {
	name := spec.Name
	if name == "" {
		name = domain.DefaultTerminalName
	}

	if !h.inTmux {
		return domain.TerminalRef{}, ErrNotInsideTmux
	}

	args := []string{"new-window", "-P", "-F", "#{window_id}", "-n", name}
	if spec.HideFromUser {
		args = append(args, "-d")
	} else {
		h.rememberHome(ctx, "")
	}
	if spec.WorkDir != "" {
		args = append(args, "-c", spec.WorkDir)
	}
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, spec.Env[k]))
	}
	if spec.ShellPath != "" {
		args = append(args, spec.ShellPath)
	}

	id, err := h.run(ctx, args...)
	if err != nil {
		return domain.TerminalRef{}, err
	}
	if id == "" {
		return domain.TerminalRef{}, fmt.Errorf("tmux %s: no window id", args[0])
	}

	h.mu.Lock()
	h.owned[id] = true
	h.mu.Unlock()

	h.logger.Debug("tmux window opened", map[string]interface{}{"window": id, "name": name})
	return domain.TerminalRef{ID: id}, nil
}

// Close kills the window.
func (h *TmuxHost) Close(ctx context.Context, ref domain.TerminalRef) error {
	if ref.IsZero() {
		return ErrUnknownRef
	}
	h.mu.Lock()
	delete(h.owned, ref.ID)
	h.mu.Unlock()
	_, err := h.run(ctx, "kill-window", "-t", ref.ID)
	return err
}

// SendText types text literally, then presses Enter as a separate key.
func (h *TmuxHost) SendText(ctx context.Context, ref domain.TerminalRef, text string) error {
	if ref.IsZero() {
		return ErrUnknownRef
	}
	if _, err := h.run(ctx, "send-keys", "-t", ref.ID, "-l", text); err != nil {
		return err
	}
	_, err := h.run(ctx, "send-keys", "-t", ref.ID, "Enter")
	return err
}

// Show selects the window. The window that was active before the first
// owned window is shown becomes the home window that Hide returns to.
func (h *TmuxHost) Show(ctx context.Context, ref domain.TerminalRef) error {
	if ref.IsZero() {
		return ErrUnknownRef
	}
	h.rememberHome(ctx, ref.ID)
	if _, err := h.run(ctx, "select-window", "-t", ref.ID); err != nil {
		return err
	}
	h.publish(ref)
	return nil
}

// Hide moves away from an owned window: back to the home window, or to the
// last window when no home is known. Windows the host did not open have no
// panel to collapse in tmux, so hiding one keeps it selected.
func (h *TmuxHost) Hide(ctx context.Context, ref domain.TerminalRef) error {
	h.mu.Lock()
	home := h.home
	owned := h.owned[ref.ID]
	h.mu.Unlock()

	if !owned {
		h.logger.Debug("hide of a foreign window ignored", map[string]interface{}{"window": ref.ID})
		return nil
	}

	if home != "" && home != ref.ID && h.Alive(ctx, domain.TerminalRef{ID: home}) {
		if _, err := h.run(ctx, "select-window", "-t", home); err != nil {
			return err
		}
		h.publish(domain.TerminalRef{ID: home})
		return nil
	}
	_, err := h.run(ctx, "last-window")
	return err
}

// rememberHome records the current window as home unless it is owned or is
// the window about to be selected.
func (h *TmuxHost) rememberHome(ctx context.Context, selecting string) {
	current, ok := h.ActiveTerminal(ctx)
	if !ok {
		return
	}
	h.mu.Lock()
	if !h.owned[current.ID] && current.ID != selecting {
		h.home = current.ID
	}
	h.mu.Unlock()
}

// Maximize zooms the window's pane unless it is already zoomed.
func (h *TmuxHost) Maximize(ctx context.Context, ref domain.TerminalRef) error {
	if ref.IsZero() {
		return ErrUnknownRef
	}
	zoomed, err := h.run(ctx, "display-message", "-p", "-t", ref.ID, "#{window_zoomed_flag}")
	if err != nil {
		return err
	}
	if zoomed == "1" {
		return nil
	}
	_, err = h.run(ctx, "resize-pane", "-Z", "-t", ref.ID)
	return err
}

// Alive reports whether the window still exists on the server.
func (h *TmuxHost) Alive(ctx context.Context, ref domain.TerminalRef) bool {
	if ref.IsZero() {
		return false
	}
	out, err := h.run(ctx, "list-windows", "-a", "-F", "#{window_id}")
	if err != nil {
		return false
	}
	for _, id := range strings.Split(out, "\n") {
		if strings.TrimSpace(id) == ref.ID {
			return true
		}
	}
	return false
}

// ActiveTerminal returns the window the current client is looking at.
func (h *TmuxHost) ActiveTerminal(ctx context.Context) (domain.TerminalRef, bool) {
	if !h.inTmux {
		return domain.TerminalRef{}, false
	}
	id, err := h.run(ctx, "display-message", "-p", "#{window_id}")
	if err != nil || id == "" {
		return domain.TerminalRef{}, false
	}
	return domain.TerminalRef{ID: id}, true
}

// ActiveTerminalChanges implements ports.TerminalHost. tmux pushes nothing,
// so only switches made through this host are reported.
func (h *TmuxHost) ActiveTerminalChanges() <-chan domain.TerminalRef {
	return h.changes
}

func (h *TmuxHost) publish(ref domain.TerminalRef) {
	select {
	case h.changes <- ref:
	default:
		h.logger.Debug("dropped focus change", map[string]interface{}{"window": ref.ID})
	}
}

// run executes a tmux command and returns trimmed stdout.
func (h *TmuxHost) run(ctx context.Context, args ...string) (string, error) {
	all := []string{"-u"}
	if h.socket != "" {
		all = append(all, "-L", h.socket)
	}
	all = append(all, args...)

	result, err := h.exec.Execute(ctx, "tmux", all...)
	if err != nil {
		return "", wrapError(err, result.Stderr, args)
	}
	return strings.TrimSpace(result.Stdout), nil
}

func wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)
	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") {
		return ErrNoServer
	}
	if strings.Contains(stderr, "can't find window") {
		return fmt.Errorf("tmux %s: %w", args[0], ErrWindowNotFound)
	}
	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

var _ ports.TerminalHost = (*TmuxHost)(nil)
