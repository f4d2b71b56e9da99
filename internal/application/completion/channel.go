// Package completion turns sentinel file writes into typed completion events.
package completion

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Channel watches one session's sentinel file. At most one watch is armed at
// a time; arming again or closing invalidates the previous watch.
type Channel struct {
	path    string
	watcher ports.Watcher
	logger  ports.Logger

	mu         sync.Mutex
	generation uint64
	sub        ports.WatchSubscription
	done       chan struct{}
}

// NewChannel creates an unarmed channel for the sentinel at path.
func NewChannel(path string, watcher ports.Watcher, logger ports.Logger) *Channel {
	return &Channel{path: path, watcher: watcher, logger: logger}
}

// Path returns the sentinel path.
func (c *Channel) Path() string { return c.path }

// Generation returns the generation of the armed watch, 0 when closed.
func (c *Channel) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return 0
	}
	return c.generation
}

// Arm truncates the sentinel and starts watching it. Every event delivered on
// the returned channel carries generation. The channel is closed when the
// watch ends, either through Close, a re-Arm or a tampered sentinel.
func (c *Channel) Arm(generation uint64) (<-chan domain.CompletionEvent, error) {
	c.Close()

	if err := os.WriteFile(c.path, nil, domain.SecureFilePermissions); err != nil {
		return nil, fmt.Errorf("truncate sentinel: %w", err)
	}
	sub, err := c.watcher.Watch(c.path)
	if err != nil {
		return nil, fmt.Errorf("watch sentinel: %w", err)
	}

	out := make(chan domain.CompletionEvent, 1)
	done := make(chan struct{})

	c.mu.Lock()
	c.generation = generation
	c.sub = sub
	c.done = done
	c.mu.Unlock()

	go c.pump(generation, sub, done, out)
	return out, nil
}

// Close invalidates the current watch. Events still in flight are dropped.
func (c *Channel) Close() {
	c.mu.Lock()
	sub, done := c.sub, c.done
	c.sub, c.done = nil, nil
	c.mu.Unlock()

	if sub == nil {
		return
	}
	close(done)
	if err := sub.Close(); err != nil {
		c.logger.Warn("failed to close sentinel watch", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Channel) pump(generation uint64, sub ports.WatchSubscription, done <-chan struct{}, out chan<- domain.CompletionEvent) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			event, ok := c.classify(generation, ev)
			if !ok {
				continue
			}
			if event.Verdict == domain.VerdictSuccess || event.Verdict == domain.VerdictFailure {
				c.reset()
			}
			select {
			case <-done:
				return
			case out <- event:
			}
			if event.Verdict == domain.VerdictTampered {
				c.closeIfCurrent(sub)
				return
			}
		}
	}
}

// classify turns a watch event into a completion event. An empty sentinel is
// the channel's own truncation and yields nothing.
func (c *Channel) classify(generation uint64, ev domain.WatchEvent) (domain.CompletionEvent, bool) {
	if ev.Kind == domain.WatchStructural {
		return domain.CompletionEvent{Generation: generation, Verdict: domain.VerdictTampered, Err: domain.ErrSentinelTampered}, true
	}
	if ev.Err != nil {
		return domain.CompletionEvent{Generation: generation, Verdict: domain.VerdictUnresolved, Err: ev.Err}, true
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return domain.CompletionEvent{
			Generation: generation,
			Verdict:    domain.VerdictUnresolved,
			Err:        fmt.Errorf("read sentinel: %w", err),
		}, true
	}
	if len(data) == 0 {
		return domain.CompletionEvent{}, false
	}
	verdict, payload := Decode(data)
	return domain.CompletionEvent{Generation: generation, Verdict: verdict, Payload: payload}, true
}

// reset empties the sentinel after a verdict so the next write starts clean.
func (c *Channel) reset() {
	if err := os.WriteFile(c.path, nil, domain.SecureFilePermissions); err != nil {
		c.logger.Warn("failed to truncate sentinel", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Channel) closeIfCurrent(sub ports.WatchSubscription) {
	c.mu.Lock()
	current := c.sub == sub
	if current {
		c.sub, c.done = nil, nil
	}
	c.mu.Unlock()
	if current {
		_ = sub.Close()
	}
}

// Decode classifies sentinel content. A leading '1' is a failure regardless
// of what follows. Anything else is a success; the payload holds the result
// records. A first line that is only a status digit is not a record.
func Decode(data []byte) (domain.Verdict, string) {
	if len(data) > 0 && data[0] == '1' {
		return domain.VerdictFailure, ""
	}
	text := string(data)
	first, rest, found := strings.Cut(text, "\n")
	switch strings.TrimSpace(first) {
	case "", "0":
		if !found {
			return domain.VerdictSuccess, ""
		}
		return domain.VerdictSuccess, rest
	}
	return domain.VerdictSuccess, text
}
