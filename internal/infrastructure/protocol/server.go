package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Handler receives decoded inbound messages. Calls are made on the dispatcher,
// one at a time, in arrival order.
type Handler interface {
	Command(ctx context.Context, name, selection string)
	SettingsChanged(ctx context.Context, settings map[string]interface{})
	WorkspaceFoldersChanged(ctx context.Context, folders []string)
	ActiveTerminalChanged(ctx context.Context, terminal string)
}

// maxLine bounds one inbound message; settings payloads can be large.
const maxLine = 4 << 20

// Server reads inbound messages and posts them to the dispatcher. Choice
// replies skip the dispatcher and go straight to the peer, because the
// dispatcher may be blocked waiting for them.
type Server struct {
	peer       *Peer
	handler    Handler
	dispatcher ports.Dispatcher
	logger     ports.Logger
}

// NewServer builds a server.
func NewServer(peer *Peer, handler Handler, dispatcher ports.Dispatcher, logger ports.Logger) *Server {
	return &Server{peer: peer, handler: handler, dispatcher: dispatcher, logger: logger}
}

// Serve reads r until EOF, a shutdown message or ctx ends. Malformed lines are
// reported to the peer and skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	defer s.peer.Close()

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLine)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-readCtx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			if stop := s.handle(ctx, line); stop {
				return nil
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, line []byte) bool {
	var msg Inbound
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Warn("malformed message", map[string]interface{}{"error": err.Error()})
		s.peer.Notify(domain.MessageError, "fif: malformed message: "+err.Error())
		return false
	}
	s.logger.Debug("inbound", map[string]interface{}{"type": msg.Type})

	switch msg.Type {
	case TypeShutdown:
		return true
	case TypeChoice:
		if !s.peer.Resolve(msg) {
			s.logger.Debug("unexpected choice reply", map[string]interface{}{"id": msg.ID})
		}
	case TypeCommand:
		s.dispatcher.Post(func() { s.handler.Command(ctx, msg.Name, msg.Selection) })
	case TypeSettingsChanged:
		s.dispatcher.Post(func() { s.handler.SettingsChanged(ctx, msg.Settings) })
	case TypeWorkspaceFoldersChanged:
		s.dispatcher.Post(func() { s.handler.WorkspaceFoldersChanged(ctx, msg.Folders) })
	case TypeActiveTerminalChanged:
		s.dispatcher.Post(func() { s.handler.ActiveTerminalChanged(ctx, msg.Terminal) })
	default:
		s.logger.Warn("unknown message type", map[string]interface{}{"type": msg.Type})
		s.peer.Notify(domain.MessageWarning, "fif: unknown message type "+msg.Type)
	}
	return false
}
