package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

func newTestManager(t *testing.T, host ports.TerminalHost) (*Manager, *fakes.Clock, *fakes.Queue) {
	t.Helper()
	clock := fakes.NewClock()
	queue := &fakes.Queue{}
	m := NewManager(Options{
		Host:       host,
		Clock:      clock,
		Dispatcher: queue,
		Logger:     fakes.Logger{},
		TempRoot:   t.TempDir(),
	})
	return m, clock, queue
}

func testSettings() domain.SessionSettings {
	return domain.SessionSettings{
		Name:      "FindItFaster",
		ScriptDir: "/opt/fif",
		FindFiles: domain.PreviewSettings{ShowPreview: true, PreviewCommand: "bat {}"},
		BatTheme:  "1337",
		WorkDir:   "/repo",
	}
}

func TestCreatePreparesSentinelAndEnvironment(t *testing.T) {
	host := fakes.NewHost()
	m, _, _ := newTestManager(t, host)

	paths, err := m.Create(context.Background(), testSettings())
	require.NoError(t, err)

	info, err := os.Stat(paths.Sentinel)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.Len(t, host.Opened, 1)
	env := host.Opened[0].Env
	assert.Equal(t, paths.Sentinel, env[EnvCanaryFile])
	assert.Equal(t, paths.Selection, env[EnvSelectionFile])
	assert.Equal(t, "1", env[EnvActive])
	assert.Equal(t, "ignoreboth", env[EnvHistControl])
	assert.Equal(t, "/opt/fif", env[EnvExtensionPath])
	assert.Equal(t, "1", env[EnvFindFilesPreviewEnabled])
	assert.Equal(t, "1337", env[EnvBatTheme])
	assert.True(t, host.Opened[0].HideFromUser)
	assert.Equal(t, "/repo", host.Opened[0].WorkDir)

	assert.Equal(t, domain.SessionCreated, m.State())
	assert.True(t, m.Live(context.Background()))
	assert.Equal(t, uint64(1), m.Terminal().Generation)
}

func TestCreateReplacesPreviousSession(t *testing.T) {
	host := fakes.NewHost()
	m, _, _ := newTestManager(t, host)
	ctx := context.Background()

	first, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	firstRef := m.Terminal()

	second, err := m.Create(ctx, testSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{firstRef.ID}, host.Closed)
	assert.NoDirExists(t, first.TempDir)
	assert.DirExists(t, second.TempDir)
	assert.NotEqual(t, firstRef.ID, m.Terminal().ID)
	assert.Equal(t, uint64(2), m.Terminal().Generation)
}

func TestCreateCleansUpWhenHostFails(t *testing.T) {
	host := fakes.NewHost()
	host.OpenErr = errors.New("no server running")
	m, _, _ := newTestManager(t, host)

	_, err := m.Create(context.Background(), testSettings())
	require.Error(t, err)
	assert.Equal(t, domain.SessionAbsent, m.State())

	entries, err := os.ReadDir(m.tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDisposeDeferredWaitsForDelay(t *testing.T) {
	host := fakes.NewHost()
	m, clock, queue := newTestManager(t, host)
	ctx := context.Background()

	_, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	id := m.Terminal().ID

	m.DisposeDeferred(ctx)
	clock.Advance(99 * time.Millisecond)
	queue.Drain()
	assert.Empty(t, host.Closed)

	clock.Advance(time.Millisecond)
	queue.Drain()
	assert.Equal(t, []string{id}, host.Closed)
	assert.Equal(t, domain.SessionDisposed, m.State())
}

func TestDisposeDeferredIgnoredAfterRecreate(t *testing.T) {
	host := fakes.NewHost()
	m, clock, queue := newTestManager(t, host)
	ctx := context.Background()

	_, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	m.DisposeDeferred(ctx)

	// Create cancels the pending close before opening the next terminal.
	_, err = m.Create(ctx, testSettings())
	require.NoError(t, err)
	closedBefore := len(host.Closed)

	clock.Advance(time.Second)
	queue.Drain()
	assert.Len(t, host.Closed, closedBefore)
	assert.True(t, m.Live(ctx))
}

func TestDisposeDeferredWithAcknowledgingHost(t *testing.T) {
	base := fakes.NewHost()
	m, clock, queue := newTestManager(t, fakes.AckHost{Host: base})
	ctx := context.Background()

	_, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	id := m.Terminal().ID

	m.DisposeDeferred(ctx)
	assert.Equal(t, []string{id}, base.Closed)
	assert.Zero(t, clock.Pending())

	base.Terminate(id)
	require.Eventually(t, func() bool { return queue.Len() > 0 }, time.Second, time.Millisecond)
	queue.Drain()
	assert.Equal(t, domain.SessionDisposed, m.State())
}

func TestOperationsRequireLiveSession(t *testing.T) {
	host := fakes.NewHost()
	m, _, _ := newTestManager(t, host)
	ctx := context.Background()

	assert.ErrorIs(t, m.SendCommand(ctx, "ls"), domain.ErrSessionAbsent)

	paths, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	require.NoError(t, m.SendCommand(ctx, "ls"))
	assert.Equal(t, domain.SessionActive, m.State())
	assert.Equal(t, []string{"ls"}, host.SentTo(m.Terminal().ID))

	require.NoError(t, m.Dispose(ctx))
	assert.NoDirExists(t, paths.TempDir)
	assert.ErrorIs(t, m.SendCommand(ctx, "ls"), domain.ErrSessionAbsent)
	assert.ErrorIs(t, m.Show(ctx), domain.ErrSessionAbsent)
	assert.ErrorIs(t, m.Hide(ctx), domain.ErrSessionAbsent)
}

func TestLiveFalseWhenUserClosedTerminal(t *testing.T) {
	host := fakes.NewHost()
	m, _, _ := newTestManager(t, host)
	ctx := context.Background()

	_, err := m.Create(ctx, testSettings())
	require.NoError(t, err)
	host.Kill(m.Terminal().ID)

	assert.False(t, m.Live(ctx))
	require.NoError(t, m.Dispose(ctx))
	assert.Empty(t, host.Closed)
}
