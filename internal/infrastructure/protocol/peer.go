package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// ErrPeerClosed is returned by pending choose requests once the peer stops.
var ErrPeerClosed = errors.New("editor connection closed")

// Peer is the editor plugin on the other end of the pipe. It acts as the
// editor, notifier and chooser of the orchestrator.
type Peer struct {
	mu  sync.Mutex
	enc *json.Encoder

	pendingMu sync.Mutex
	pending   map[string]chan Inbound
	closed    bool

	logger ports.Logger
}

// NewPeer writes outbound messages to w.
func NewPeer(w io.Writer, logger ports.Logger) *Peer {
	return &Peer{
		enc:     json.NewEncoder(w),
		pending: make(map[string]chan Inbound),
		logger:  logger,
	}
}

// Send writes one message.
func (p *Peer) Send(msg Outbound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(msg)
}

// Open implements ports.Editor. Positions are sent 0-based.
func (p *Peer) Open(_ context.Context, req domain.OpenRequest) error {
	msg := Outbound{Type: TypeOpen, Path: req.Target.Path, Preview: req.Preview}
	if pos := req.Target.Position; pos != nil {
		line, col := pos.Line, pos.Column
		msg.Line, msg.Column = &line, &col
	}
	return p.Send(msg)
}

// Notify implements ports.Notifier.
func (p *Peer) Notify(level domain.MessageLevel, text string) {
	if err := p.Send(Outbound{Type: TypeMessage, Level: string(level), Text: text}); err != nil {
		p.logger.Warn("failed to send message", map[string]interface{}{"error": err.Error()})
	}
}

// ChooseTypes implements ports.Chooser.
func (p *Peer) ChooseTypes(ctx context.Context, options []domain.TypeOption, current []string) ([]string, bool, error) {
	opts := make([]Option, 0, len(options)+1)
	opts = append(opts, Option{Value: domain.ClearTypeFilterToken, Label: "Clear all", Description: "reset the type filter"})
	for _, o := range options {
		opts = append(opts, Option{Value: o.Name, Label: o.Name, Description: o.Globs})
	}
	reply, err := p.ask(ctx, Outbound{Type: TypeChoose, Kind: ChooseTypes, Options: opts, Current: current})
	if err != nil || reply.Dismissed {
		return nil, false, err
	}
	return reply.Values, true, nil
}

// ChooseTask implements ports.Chooser.
func (p *Peer) ChooseTask(ctx context.Context, tasks []domain.CustomTask) (domain.CustomTask, bool, error) {
	opts := make([]Option, 0, len(tasks))
	for _, t := range tasks {
		opts = append(opts, Option{Value: t.Name, Label: t.Name, Description: t.Command})
	}
	reply, err := p.ask(ctx, Outbound{Type: TypeChoose, Kind: ChooseTask, Options: opts})
	if err != nil || reply.Dismissed || len(reply.Values) == 0 {
		return domain.CustomTask{}, false, err
	}
	if task, ok := domain.FindCustomTask(tasks, reply.Values[0]); ok {
		return task, true, nil
	}
	return domain.CustomTask{}, false, fmt.Errorf("unknown custom task %q", reply.Values[0])
}

// Resolve delivers a choice reply to its pending request. It reports false
// for replies nobody is waiting for.
func (p *Peer) Resolve(reply Inbound) bool {
	p.pendingMu.Lock()
	ch, ok := p.pending[reply.ID]
	delete(p.pending, reply.ID)
	p.pendingMu.Unlock()
	if !ok {
		return false
	}
	ch <- reply
	return true
}

// Close fails every pending request.
func (p *Peer) Close() {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	p.closed = true
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
}

func (p *Peer) ask(ctx context.Context, msg Outbound) (Inbound, error) {
	msg.ID = uuid.NewString()
	ch := make(chan Inbound, 1)

	p.pendingMu.Lock()
	if p.closed {
		p.pendingMu.Unlock()
		return Inbound{}, ErrPeerClosed
	}
	p.pending[msg.ID] = ch
	p.pendingMu.Unlock()

	if err := p.Send(msg); err != nil {
		p.forget(msg.ID)
		return Inbound{}, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return Inbound{}, ErrPeerClosed
		}
		return reply, nil
	case <-ctx.Done():
		p.forget(msg.ID)
		return Inbound{}, ctx.Err()
	}
}

func (p *Peer) forget(id string) {
	p.pendingMu.Lock()
	delete(p.pending, id)
	p.pendingMu.Unlock()
}

var (
	_ ports.Editor   = (*Peer)(nil)
	_ ports.Notifier = (*Peer)(nil)
	_ ports.Chooser  = (*Peer)(nil)
)
