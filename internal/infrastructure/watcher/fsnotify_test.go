package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

func newSentinel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), domain.SentinelFileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func next(t *testing.T, events <-chan domain.WatchEvent) domain.WatchEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no watch event")
	}
	return domain.WatchEvent{}
}

func TestWatchReportsWriteOnce(t *testing.T) {
	path := newSentinel(t)
	sub, err := New(50*time.Millisecond, fakes.Logger{}).Watch(path)
	require.NoError(t, err)
	defer sub.Close()

	// truncate and write back to back, like `echo ... > file`
	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("0\nmain.go\n"), 0o600))

	ev := next(t, sub.Events())
	assert.Equal(t, domain.WatchContentChanged, ev.Kind)
	assert.NoError(t, ev.Err)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected second event %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchIgnoresSiblings(t *testing.T) {
	path := newSentinel(t)
	sub, err := New(10*time.Millisecond, fakes.Logger{}).Watch(path)
	require.NoError(t, err)
	defer sub.Close()

	sibling := filepath.Join(filepath.Dir(path), domain.SelectionFileName)
	require.NoError(t, os.WriteFile(sibling, []byte("query"), 0o600))

	select {
	case ev := <-sub.Events():
		t.Fatalf("sibling write leaked %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatchReportsRemovalAsStructural(t *testing.T) {
	path := newSentinel(t)
	sub, err := New(10*time.Millisecond, fakes.Logger{}).Watch(path)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, os.Remove(path))

	ev := next(t, sub.Events())
	assert.Equal(t, domain.WatchStructural, ev.Kind)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed after structural change")
	}
}

func TestWatchReportsRenameAsStructural(t *testing.T) {
	path := newSentinel(t)
	sub, err := New(10*time.Millisecond, fakes.Logger{}).Watch(path)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, os.Rename(path, path+".moved"))
	assert.Equal(t, domain.WatchStructural, next(t, sub.Events()).Kind)
}

func TestCloseStopsDelivery(t *testing.T) {
	path := newSentinel(t)
	sub, err := New(10*time.Millisecond, fakes.Logger{}).Watch(path)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o600))

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.NoError(t, sub.Close())
}

func TestWatchMissingDirectory(t *testing.T) {
	_, err := New(0, fakes.Logger{}).Watch(filepath.Join(t.TempDir(), "gone", "snitch"))
	assert.Error(t, err)
}
