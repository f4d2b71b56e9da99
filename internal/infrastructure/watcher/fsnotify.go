// Package watcher adapts fsnotify to ports.Watcher.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// FSWatcher watches single files. It watches the parent directory and filters
// by name, so a file that is removed or replaced is still reported.
type FSWatcher struct {
	settle time.Duration
	logger ports.Logger
}

// New creates a watcher. Content events on the same file that arrive within
// settle of each other are coalesced into one.
func New(settle time.Duration, logger ports.Logger) *FSWatcher {
	if settle <= 0 {
		settle = domain.SentinelSettleDelay
	}
	return &FSWatcher{settle: settle, logger: logger}
}

// Watch implements ports.Watcher.
func (w *FSWatcher) Watch(path string) (ports.WatchSubscription, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	sub := &subscription{
		path:    abs,
		settle:  w.settle,
		watcher: fw,
		logger:  w.logger,
		events:  make(chan domain.WatchEvent),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

type subscription struct {
	path    string
	settle  time.Duration
	watcher *fsnotify.Watcher
	logger  ports.Logger

	events chan domain.WatchEvent
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.WatchEvent { return s.events }

// Close stops the watch and waits for the delivery goroutine, so nothing is
// delivered once it returns.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		<-s.exited
	})
	return err
}

func (s *subscription) run() {
	defer close(s.exited)
	defer close(s.events)

	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			s.logger.Debug("sentinel event", map[string]interface{}{"path": ev.Name, "op": ev.Op.String()})
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				s.emit(domain.WatchEvent{Kind: domain.WatchStructural, Path: s.path})
				return
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				if timer == nil {
					timer = time.NewTimer(s.settle)
				} else {
					timer.Reset(s.settle)
				}
				settle = timer.C
			}

		case <-settle:
			settle = nil
			if !s.emit(domain.WatchEvent{Kind: domain.WatchContentChanged, Path: s.path}) {
				return
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if !s.emit(domain.WatchEvent{Kind: domain.WatchContentChanged, Path: s.path, Err: err}) {
				return
			}
		}
	}
}

func (s *subscription) emit(ev domain.WatchEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

var _ ports.Watcher = (*FSWatcher)(nil)
