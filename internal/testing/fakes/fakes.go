// Package fakes provides in-memory implementations of the ports for tests.
package fakes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Host is an in-memory TerminalHost.
type Host struct {
	Mu       sync.Mutex
	next     int
	alive    map[string]bool
	active   domain.TerminalRef
	changes  chan domain.TerminalRef
	Opened   []domain.TerminalSpec
	Closed   []string
	Sent     map[string][]string
	Shown    []string
	Hidden   []string
	Maxed    []string
	OpenErr  error
	notifies map[string]chan struct{}
	// AckTermination makes the host implement termination acknowledgement
	// through AckHost.
	AckTermination bool
}

// NewHost returns an empty host.
func NewHost() *Host {
	return &Host{
		alive:    make(map[string]bool),
		changes:  make(chan domain.TerminalRef, 16),
		Sent:     make(map[string][]string),
		notifies: make(map[string]chan struct{}),
	}
}

func (h *Host) Name() string { return "fake" }

func (h *Host) Available(context.Context) bool { return true }

func (h *Host) Open(_ context.Context, spec domain.TerminalSpec) (domain.TerminalRef, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	if h.OpenErr != nil {
		return domain.TerminalRef{}, h.OpenErr
	}
	h.next++
	id := fmt.Sprintf("@%d", h.next)
	h.alive[id] = true
	h.Opened = append(h.Opened, spec)
	return domain.TerminalRef{ID: id}, nil
}

// AddTerminal registers a terminal not opened by the session, e.g. the user's own.
func (h *Host) AddTerminal(id string) domain.TerminalRef {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.alive[id] = true
	return domain.TerminalRef{ID: id}
}

func (h *Host) Close(_ context.Context, ref domain.TerminalRef) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.alive[ref.ID] = false
	h.Closed = append(h.Closed, ref.ID)
	return nil
}

// Kill simulates the user closing a terminal outside the orchestrator.
func (h *Host) Kill(id string) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.alive[id] = false
}

// Terminate acknowledges termination of id.
func (h *Host) Terminate(id string) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	if ch, ok := h.notifies[id]; ok {
		close(ch)
		delete(h.notifies, id)
	}
}

func (h *Host) SendText(_ context.Context, ref domain.TerminalRef, text string) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.Sent[ref.ID] = append(h.Sent[ref.ID], text)
	return nil
}

func (h *Host) Show(_ context.Context, ref domain.TerminalRef) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.Shown = append(h.Shown, ref.ID)
	h.active = ref
	return nil
}

func (h *Host) Hide(_ context.Context, ref domain.TerminalRef) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.Hidden = append(h.Hidden, ref.ID)
	return nil
}

func (h *Host) Maximize(_ context.Context, ref domain.TerminalRef) error {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.Maxed = append(h.Maxed, ref.ID)
	return nil
}

func (h *Host) Alive(_ context.Context, ref domain.TerminalRef) bool {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.alive[ref.ID]
}

// SetActive makes ref the focused terminal without emitting a change.
func (h *Host) SetActive(ref domain.TerminalRef) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	h.active = ref
}

func (h *Host) ActiveTerminal(context.Context) (domain.TerminalRef, bool) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.active, !h.active.IsZero()
}

func (h *Host) ActiveTerminalChanges() <-chan domain.TerminalRef {
	return h.changes
}

// SentTo returns the texts typed into id.
func (h *Host) SentTo(id string) []string {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return append([]string(nil), h.Sent[id]...)
}

// AckHost wraps Host and acknowledges termination.
type AckHost struct {
	*Host
}

// Terminated implements ports.TerminationNotifier.
func (h AckHost) Terminated(ref domain.TerminalRef) <-chan struct{} {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	ch, ok := h.notifies[ref.ID]
	if !ok {
		ch = make(chan struct{})
		h.notifies[ref.ID] = ch
	}
	return ch
}

// Clock is a manual clock.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*timer
}

type timer struct {
	clock   *Clock
	at      time.Time
	fn      func()
	stopped bool
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now.Add(d), fn: f}
	c.pending = append(c.pending, t)
	return t
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped
	t.stopped = true
	return wasPending
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward and fires due timers in order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	sort.SliceStable(c.pending, func(i, j int) bool { return c.pending[i].at.Before(c.pending[j].at) })
	var due []*timer
	var keep []*timer
	for _, t := range c.pending {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.stopped = true
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	c.pending = keep
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

// Queue is a Dispatcher that holds posted closures until Drain.
type Queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, fn)
}

// Drain runs posted closures, including ones posted while draining.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.fns) == 0 {
			q.mu.Unlock()
			return ran
		}
		fn := q.fns[0]
		q.fns = q.fns[1:]
		q.mu.Unlock()
		fn()
		ran++
	}
}

// Len returns the number of queued closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// Watcher hands out manually driven subscriptions.
type Watcher struct {
	mu   sync.Mutex
	subs []*Subscription
	Err  error
}

// Subscription is one fake watch.
type Subscription struct {
	Path   string
	events chan domain.WatchEvent
	closed bool
	mu     sync.Mutex
}

func (w *Watcher) Watch(path string) (ports.WatchSubscription, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return nil, w.Err
	}
	sub := &Subscription{Path: path, events: make(chan domain.WatchEvent, 16)}
	w.subs = append(w.subs, sub)
	return sub, nil
}

func (s *Subscription) Events() <-chan domain.WatchEvent { return s.events }

func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// Emit delivers ev to every open subscription on path and returns how many received it.
func (w *Watcher) Emit(path string, kind domain.WatchEventKind) int {
	w.mu.Lock()
	subs := append([]*Subscription(nil), w.subs...)
	w.mu.Unlock()
	n := 0
	for _, s := range subs {
		s.mu.Lock()
		if !s.closed && s.Path == path {
			s.events <- domain.WatchEvent{Kind: kind, Path: path}
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Live returns the number of open subscriptions.
func (w *Watcher) Live() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.subs {
		s.mu.Lock()
		if !s.closed {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Editor records open requests.
type Editor struct {
	mu     sync.Mutex
	Opened []domain.OpenRequest
}

func (e *Editor) Open(_ context.Context, req domain.OpenRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Opened = append(e.Opened, req)
	return nil
}

// Notifier records user-facing messages.
type Notifier struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one recorded notification.
type Message struct {
	Level domain.MessageLevel
	Text  string
}

func (n *Notifier) Notify(level domain.MessageLevel, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, Message{Level: level, Text: text})
}

// Count returns how many messages of level were recorded.
func (n *Notifier) Count(level domain.MessageLevel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.Messages {
		if m.Level == level {
			c++
		}
	}
	return c
}

// Chooser returns canned answers.
type Chooser struct {
	Types     []string
	TypesOK   bool
	Task      domain.CustomTask
	TaskOK    bool
	Offered   []domain.TypeOption
	TaskCalls int
}

func (c *Chooser) ChooseTypes(_ context.Context, options []domain.TypeOption, _ []string) ([]string, bool, error) {
	c.Offered = options
	return c.Types, c.TypesOK, nil
}

func (c *Chooser) ChooseTask(_ context.Context, _ []domain.CustomTask) (domain.CustomTask, bool, error) {
	c.TaskCalls++
	return c.Task, c.TaskOK, nil
}

// History is an in-memory HistoryRepository.
type History struct {
	mu      sync.Mutex
	Entries []domain.HistoryRecord
}

func (h *History) Save(record domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Entries = append(h.Entries, record)
	return nil
}

func (h *History) Records(limit int) ([]domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.HistoryRecord, 0, len(h.Entries))
	for i := len(h.Entries) - 1; i >= 0; i-- {
		out = append(out, h.Entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (h *History) LastResumable() (domain.HistoryRecord, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Entries) - 1; i >= 0; i-- {
		if h.Entries[i].Resumable {
			return h.Entries[i], true, nil
		}
	}
	return domain.HistoryRecord{}, false, nil
}

func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Entries = nil
	return nil
}

func (h *History) Path() string { return ":memory:" }

// Executor returns canned output per program name.
type Executor struct {
	Outputs map[string]string
	Errs    map[string]error
	Calls   [][]string
}

func (e *Executor) Execute(_ context.Context, name string, args ...string) (domain.ExecutionResult, error) {
	e.Calls = append(e.Calls, append([]string{name}, args...))
	if err := e.Errs[name]; err != nil {
		return domain.ExecutionResult{Err: err, ExitCode: 1}, err
	}
	return domain.ExecutionResult{Ran: true, Stdout: e.Outputs[name]}, nil
}

// CallCount returns how often name was executed.
func (e *Executor) CallCount(name string) int {
	n := 0
	for _, call := range e.Calls {
		if call[0] == name {
			n++
		}
	}
	return n
}

// Logger discards everything.
type Logger struct{}

func (Logger) Debug(string, map[string]interface{})        {}
func (Logger) Info(string, map[string]interface{})         {}
func (Logger) Warn(string, map[string]interface{})         {}
func (Logger) Error(string, error, map[string]interface{}) {}

var (
	_ ports.TerminalHost        = (*Host)(nil)
	_ ports.TerminationNotifier = AckHost{}
	_ ports.Clock               = (*Clock)(nil)
	_ ports.Dispatcher          = (*Queue)(nil)
	_ ports.Watcher             = (*Watcher)(nil)
	_ ports.Editor              = (*Editor)(nil)
	_ ports.Notifier            = (*Notifier)(nil)
	_ ports.Chooser             = (*Chooser)(nil)
	_ ports.HistoryRepository   = (*History)(nil)
	_ ports.CommandExecutor     = (*Executor)(nil)
	_ ports.Logger              = Logger{}
)
