// Package session owns the single shared terminal session: its temp files,
// its environment and its host terminal.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/pkg/filesystem"
	"github.com/doeshing/fif-go/internal/ports"
)

// Manager creates, drives and disposes the session terminal. It is not safe
// for concurrent use; every method runs on the orchestrator loop.
type Manager struct {
	host       ports.TerminalHost
	clock      ports.Clock
	dispatcher ports.Dispatcher
	logger     ports.Logger
	tempRoot   string

	state      domain.SessionState
	ref        domain.TerminalRef
	paths      domain.SessionPaths
	env        map[string]string
	generation uint64
	pending    ports.Timer
}

// Options configures a Manager.
type Options struct {
	Host       ports.TerminalHost
	Clock      ports.Clock
	Dispatcher ports.Dispatcher
	Logger     ports.Logger
	// TempRoot is the parent of the per-session directories, os.TempDir() when empty.
	TempRoot string
}

// NewManager constructs a Manager with no session.
func NewManager(opts Options) *Manager {
	return &Manager{
		host:       opts.Host,
		clock:      opts.Clock,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		tempRoot:   opts.TempRoot,
		state:      domain.SessionAbsent,
	}
}

// Create disposes any existing session, prepares a fresh temp directory with
// an empty sentinel and opens a new terminal carrying the session environment.
func (m *Manager) Create(ctx context.Context, settings domain.SessionSettings) (domain.SessionPaths, error) {
	if err := m.Dispose(ctx); err != nil {
		m.logger.Warn("failed to dispose previous session", map[string]interface{}{"error": err.Error()})
	}

	dir, err := os.MkdirTemp(m.tempRoot, domain.SessionDirPrefix)
	if err != nil {
		return domain.SessionPaths{}, fmt.Errorf("create session dir: %w", err)
	}
	paths := domain.SessionPaths{
		TempDir:      dir,
		Sentinel:     filepath.Join(dir, domain.SentinelFileName),
		Selection:    filepath.Join(dir, domain.SelectionFileName),
		LastQuery:    filepath.Join(dir, domain.LastQueryFileName),
		LastPosition: filepath.Join(dir, domain.LastPositionFileName),
		Explain:      filepath.Join(dir, domain.ExplainFileName),
	}
	if err := os.WriteFile(paths.Sentinel, nil, domain.SecureFilePermissions); err != nil {
		_ = os.RemoveAll(dir)
		return domain.SessionPaths{}, fmt.Errorf("create sentinel: %w", err)
	}

	env := BuildEnvironment(settings, paths)
	ref, err := m.host.Open(ctx, domain.TerminalSpec{
		Name:         settings.Name,
		Env:          env,
		ShellPath:    settings.ShellPath,
		WorkDir:      settings.WorkDir,
		HideFromUser: !settings.InEditor,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return domain.SessionPaths{}, fmt.Errorf("open terminal on %s: %w", m.host.Name(), err)
	}

	m.generation++
	ref.Generation = m.generation
	m.ref = ref
	m.paths = paths
	m.env = env
	m.state = domain.SessionCreated

	m.logger.Info("Session created", map[string]interface{}{
		"terminal": ref.ID,
		"tempDir":  dir,
		"host":     m.host.Name(),
	})
	return paths, nil
}

// Dispose closes the terminal and removes the session files. It is
// idempotent when no session exists.
func (m *Manager) Dispose(ctx context.Context) error {
	m.cancelPending()
	if m.state == domain.SessionAbsent {
		return nil
	}
	var closeErr error
	if m.state != domain.SessionDisposed {
		if m.host.Alive(ctx, m.ref) {
			closeErr = m.host.Close(ctx, m.ref)
		}
		m.markDisposed()
	}
	if err := m.Teardown(); err != nil && closeErr == nil {
		return err
	}
	return closeErr
}

// DisposeDeferred kills the terminal after a command completed so the host
// falls back to the previously active terminal. Hosts that acknowledge
// termination are closed right away and the session is marked disposed on
// acknowledgement; otherwise the close is postponed by DeferredDisposeDelay.
// The delay works around a host race and is not a correctness guarantee.
func (m *Manager) DisposeDeferred(ctx context.Context) {
	if m.state != domain.SessionCreated && m.state != domain.SessionActive {
		return
	}
	ref := m.ref

	if notifier, ok := m.host.(ports.TerminationNotifier); ok {
		done := notifier.Terminated(ref)
		if err := m.host.Close(ctx, ref); err != nil {
			m.logger.Warn("failed to close terminal", map[string]interface{}{"terminal": ref.ID, "error": err.Error()})
		}
		go func() {
			<-done
			m.dispatcher.Post(func() {
				if m.ref == ref && m.state != domain.SessionDisposed {
					m.markDisposed()
				}
			})
		}()
		return
	}

	m.cancelPending()
	m.pending = m.clock.AfterFunc(domain.DeferredDisposeDelay, func() {
		m.dispatcher.Post(func() {
			if m.ref != ref || m.state == domain.SessionDisposed {
				return
			}
			if err := m.host.Close(ctx, ref); err != nil {
				m.logger.Warn("failed to close terminal", map[string]interface{}{"terminal": ref.ID, "error": err.Error()})
			}
			m.markDisposed()
		})
	})
}

// SendCommand types text into the session terminal.
func (m *Manager) SendCommand(ctx context.Context, text string) error {
	if !m.Live(ctx) {
		return domain.ErrSessionAbsent
	}
	if err := m.host.SendText(ctx, m.ref, text); err != nil {
		return fmt.Errorf("send to terminal: %w", err)
	}
	m.state = domain.SessionActive
	return nil
}

// Clear wipes the terminal screen.
func (m *Manager) Clear(ctx context.Context) error {
	if !m.Live(ctx) {
		return domain.ErrSessionAbsent
	}
	return m.host.SendText(ctx, m.ref, "clear")
}

// Show brings the session terminal to the front.
func (m *Manager) Show(ctx context.Context) error {
	if !m.Live(ctx) {
		return domain.ErrSessionAbsent
	}
	return m.host.Show(ctx, m.ref)
}

// Hide removes the session terminal from view.
func (m *Manager) Hide(ctx context.Context) error {
	if !m.Live(ctx) {
		return domain.ErrSessionAbsent
	}
	return m.host.Hide(ctx, m.ref)
}

// Maximize asks the host to give the terminal the whole screen.
func (m *Manager) Maximize(ctx context.Context) error {
	if !m.Live(ctx) {
		return domain.ErrSessionAbsent
	}
	return m.host.Maximize(ctx, m.ref)
}

// Live reports whether a non-disposed session with a running terminal exists.
func (m *Manager) Live(ctx context.Context) bool {
	if m.state != domain.SessionCreated && m.state != domain.SessionActive {
		return false
	}
	return m.host.Alive(ctx, m.ref)
}

// Teardown removes the session files and directory.
func (m *Manager) Teardown() error {
	paths := m.paths
	m.paths = domain.SessionPaths{}
	if paths.TempDir == "" {
		return nil
	}
	for _, p := range []string{paths.Sentinel, paths.Selection, paths.LastQuery, paths.LastPosition, paths.Explain} {
		if err := filesystem.RemoveIfExists(p); err != nil {
			return err
		}
	}
	return os.RemoveAll(paths.TempDir)
}

// State returns the lifecycle state.
func (m *Manager) State() domain.SessionState { return m.state }

// Terminal returns the session terminal reference.
func (m *Manager) Terminal() domain.TerminalRef { return m.ref }

// Paths returns the session files.
func (m *Manager) Paths() domain.SessionPaths { return m.paths }

// Env returns a copy of the injected environment.
func (m *Manager) Env() map[string]string {
	out := make(map[string]string, len(m.env))
	for k, v := range m.env {
		out[k] = v
	}
	return out
}

func (m *Manager) markDisposed() {
	m.state = domain.SessionDisposed
	m.logger.Info("Session disposed", map[string]interface{}{"terminal": m.ref.ID})
}

func (m *Manager) cancelPending() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
