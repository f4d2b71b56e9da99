package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []Outbound {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Outbound
	dec := json.NewDecoder(bytes.NewReader(b.buf.Bytes()))
	for {
		var msg Outbound
		err := dec.Decode(&msg)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) Command(_ context.Context, name, selection string) {
	h.calls = append(h.calls, "command:"+name+":"+selection)
}

func (h *recordingHandler) SettingsChanged(_ context.Context, settings map[string]interface{}) {
	h.calls = append(h.calls, "settings:"+settings["general.batTheme"].(string))
}

func (h *recordingHandler) WorkspaceFoldersChanged(_ context.Context, folders []string) {
	if folders == nil {
		h.calls = append(h.calls, "folders:none")
		return
	}
	h.calls = append(h.calls, "folders:"+strings.Join(folders, ","))
}

func (h *recordingHandler) ActiveTerminalChanged(_ context.Context, terminal string) {
	h.calls = append(h.calls, "terminal:"+terminal)
}

func TestPeerOpenAndNotify(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})

	require.NoError(t, peer.Open(context.Background(), domain.OpenRequest{
		Target:  domain.OpenTarget{Path: "/repo/a.go", Position: &domain.Position{Line: 0, Column: 4}},
		Preview: true,
	}))
	require.NoError(t, peer.Open(context.Background(), domain.OpenRequest{Target: domain.OpenTarget{Path: "/repo/b.go"}}))
	peer.Notify(domain.MessageWarning, "careful")

	msgs := out.messages(t)
	require.Len(t, msgs, 3)
	assert.Equal(t, TypeOpen, msgs[0].Type)
	require.NotNil(t, msgs[0].Line)
	assert.Equal(t, 0, *msgs[0].Line)
	assert.Equal(t, 4, *msgs[0].Column)
	assert.True(t, msgs[0].Preview)
	assert.Nil(t, msgs[1].Line)
	assert.Equal(t, Outbound{Type: TypeMessage, Level: "warning", Text: "careful"}, msgs[2])
}

func TestServerRoutesInOrder(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})
	handler := &recordingHandler{}
	queue := &fakes.Queue{}
	server := NewServer(peer, handler, queue, fakes.Logger{})

	input := strings.Join([]string{
		`{"type":"workspace_folders_changed","folders":["file:///repo"]}`,
		`{"type":"command","name":"findFiles","selection":"main"}`,
		``,
		`{"type":"settings_changed","settings":{"general.batTheme":"Nord"}}`,
		`{"type":"active_terminal_changed","terminal":"@2"}`,
		`{"type":"workspace_folders_changed","folders":null}`,
		`{"type":"shutdown"}`,
		`{"type":"command","name":"ignored"}`,
	}, "\n")

	require.NoError(t, server.Serve(context.Background(), strings.NewReader(input)))
	queue.Drain()

	assert.Equal(t, []string{
		"folders:file:///repo",
		"command:findFiles:main",
		"settings:Nord",
		"terminal:@2",
		"folders:none",
	}, handler.calls)
}

func TestServerReportsBadInput(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})
	server := NewServer(peer, &recordingHandler{}, &fakes.Queue{}, fakes.Logger{})

	require.NoError(t, server.Serve(context.Background(), strings.NewReader("{oops\n{\"type\":\"dance\"}\n")))

	msgs := out.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, "error", msgs[0].Level)
	assert.Contains(t, msgs[0].Text, "malformed message")
	assert.Equal(t, "warning", msgs[1].Level)
	assert.Contains(t, msgs[1].Text, "dance")
}

func TestChooseTypesRoundTrip(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})

	type result struct {
		values []string
		ok     bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		values, ok, err := peer.ChooseTypes(context.Background(),
			[]domain.TypeOption{{Name: "go", Globs: "*.go"}, {Name: "py", Globs: "*.py"}}, []string{"go"})
		done <- result{values, ok, err}
	}()

	var req Outbound
	require.Eventually(t, func() bool {
		msgs := out.messages(t)
		if len(msgs) == 0 {
			return false
		}
		req = msgs[0]
		return true
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, TypeChoose, req.Type)
	assert.Equal(t, ChooseTypes, req.Kind)
	assert.Equal(t, []string{"go"}, req.Current)
	require.Len(t, req.Options, 3)
	assert.Equal(t, domain.ClearTypeFilterToken, req.Options[0].Value)
	assert.Equal(t, "*.py", req.Options[2].Description)

	assert.False(t, peer.Resolve(Inbound{Type: TypeChoice, ID: "someone-else"}))
	assert.True(t, peer.Resolve(Inbound{Type: TypeChoice, ID: req.ID, Values: []string{"py"}}))

	got := <-done
	require.NoError(t, got.err)
	assert.True(t, got.ok)
	assert.Equal(t, []string{"py"}, got.values)
}

func TestChooseTaskAndClose(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})
	tasks := []domain.CustomTask{{Name: "lint", Command: "make lint"}}

	type result struct {
		task domain.CustomTask
		ok   bool
		err  error
	}
	ask := func() <-chan result {
		done := make(chan result, 1)
		go func() {
			task, ok, err := peer.ChooseTask(context.Background(), tasks)
			done <- result{task, ok, err}
		}()
		return done
	}
	lastID := func(n int) string {
		var id string
		require.Eventually(t, func() bool {
			msgs := out.messages(t)
			if len(msgs) < n {
				return false
			}
			id = msgs[n-1].ID
			return true
		}, 2*time.Second, 5*time.Millisecond)
		return id
	}

	done := ask()
	require.True(t, peer.Resolve(Inbound{Type: TypeChoice, ID: lastID(1), Values: []string{"lint"}}))
	got := <-done
	require.NoError(t, got.err)
	assert.True(t, got.ok)
	assert.Equal(t, tasks[0], got.task)

	done = ask()
	require.True(t, peer.Resolve(Inbound{Type: TypeChoice, ID: lastID(2), Dismissed: true}))
	got = <-done
	require.NoError(t, got.err)
	assert.False(t, got.ok)

	done = ask()
	lastID(3)
	peer.Close()
	got = <-done
	assert.ErrorIs(t, got.err, ErrPeerClosed)

	_, ok, err := peer.ChooseTask(context.Background(), tasks)
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.False(t, ok)
}

func TestChooseHonoursContext(t *testing.T) {
	var out syncBuffer
	peer := NewPeer(&out, fakes.Logger{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := peer.ChooseTypes(ctx, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
}
