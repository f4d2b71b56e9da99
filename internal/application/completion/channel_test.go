package completion

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

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantVerdict domain.Verdict
		wantPayload string
	}{
		{name: "empty is success without results", data: "", wantVerdict: domain.VerdictSuccess, wantPayload: ""},
		{name: "failure digit", data: "1", wantVerdict: domain.VerdictFailure},
		{name: "failure ignores trailing records", data: "1\n/repo/a.go:1:1\n", wantVerdict: domain.VerdictFailure},
		{name: "failure without newline", data: "130", wantVerdict: domain.VerdictFailure},
		{name: "status line then records", data: "0\n/repo/x.go:3:1\n", wantVerdict: domain.VerdictSuccess, wantPayload: "/repo/x.go:3:1\n"},
		{name: "records only", data: "/repo/x.go\n/repo/y.go\n", wantVerdict: domain.VerdictSuccess, wantPayload: "/repo/x.go\n/repo/y.go\n"},
		{name: "status zero alone", data: "0\n", wantVerdict: domain.VerdictSuccess, wantPayload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, payload := Decode([]byte(tt.data))
			assert.Equal(t, tt.wantVerdict, verdict)
			assert.Equal(t, tt.wantPayload, payload)
		})
	}
}

func newChannel(t *testing.T) (*Channel, *fakes.Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snitch")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))
	w := &fakes.Watcher{}
	return NewChannel(path, w, fakes.Logger{}), w, path
}

func receive(t *testing.T, events <-chan domain.CompletionEvent) domain.CompletionEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event")
		return domain.CompletionEvent{}
	}
}

func TestArmTruncatesAndDecodesWrites(t *testing.T) {
	ch, w, path := newChannel(t)

	events, err := ch.Arm(7)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, os.WriteFile(path, []byte("0\n/repo/x.go:3:1\n"), 0o600))
	require.Equal(t, 1, w.Emit(path, domain.WatchContentChanged))

	ev := receive(t, events)
	assert.Equal(t, uint64(7), ev.Generation)
	assert.Equal(t, domain.VerdictSuccess, ev.Verdict)
	assert.Equal(t, "/repo/x.go:3:1\n", ev.Payload)

	// the watch stays armed for the next invocation
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))
	w.Emit(path, domain.WatchContentChanged)
	assert.Equal(t, domain.VerdictFailure, receive(t, events).Verdict)
}

func TestUnreadableSentinelIsUnresolved(t *testing.T) {
	ch, w, path := newChannel(t)
	events, err := ch.Arm(1)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	w.Emit(path, domain.WatchContentChanged)

	ev := receive(t, events)
	assert.Equal(t, domain.VerdictUnresolved, ev.Verdict)
	assert.Error(t, ev.Err)
}

func TestStructuralEventIsTampered(t *testing.T) {
	ch, w, path := newChannel(t)
	events, err := ch.Arm(3)
	require.NoError(t, err)

	w.Emit(path, domain.WatchStructural)
	ev := receive(t, events)
	assert.Equal(t, domain.VerdictTampered, ev.Verdict)
	assert.ErrorIs(t, ev.Err, domain.ErrSentinelTampered)

	_, open := <-events
	assert.False(t, open)
	assert.Eventually(t, func() bool { return w.Live() == 0 }, time.Second, time.Millisecond)
	assert.Zero(t, ch.Generation())
}

func TestRearmKeepsSingleLiveWatch(t *testing.T) {
	ch, w, path := newChannel(t)

	first, err := ch.Arm(1)
	require.NoError(t, err)
	second, err := ch.Arm(2)
	require.NoError(t, err)
	third, err := ch.Arm(3)
	require.NoError(t, err)

	assert.Equal(t, 1, w.Live())

	for _, old := range []<-chan domain.CompletionEvent{first, second} {
		select {
		case _, open := <-old:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("stale channel not closed")
		}
	}

	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o600))
	assert.Equal(t, 1, w.Emit(path, domain.WatchContentChanged))
	assert.Equal(t, uint64(3), receive(t, third).Generation)
}

func TestCloseDropsEvents(t *testing.T) {
	ch, w, path := newChannel(t)
	events, err := ch.Arm(1)
	require.NoError(t, err)

	ch.Close()
	assert.Zero(t, w.Emit(path, domain.WatchContentChanged))

	_, open := <-events
	assert.False(t, open)
}

func TestVerdictResetsSentinelAndIgnoresTheEcho(t *testing.T) {
	ch, w, path := newChannel(t)
	events, err := ch.Arm(4)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("0\n/repo/a.go\n"), 0o600))
	w.Emit(path, domain.WatchContentChanged)
	assert.Equal(t, "/repo/a.go\n", receive(t, events).Payload)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	// the truncation itself shows up as a write
	w.Emit(path, domain.WatchContentChanged)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))
	w.Emit(path, domain.WatchContentChanged)
	assert.Equal(t, domain.VerdictFailure, receive(t, events).Verdict)
}
