// Package scheduler runs the periodic reminder loop: wake, scan every
// user, persist the ones that changed, deliver notifications through an
// injected sender, then sleep until the next tick or an early wake.
package scheduler

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sivanlab/mazkir/internal/reminder"
	"github.com/sivanlab/mazkir/internal/store"
	"github.com/sivanlab/mazkir/pkg/types"
)

// Sender delivers one notification. It reports whether delivery
// succeeded; failures are logged by the scheduler and never retried.
type Sender interface {
	Send(userID, chatRef, message string) bool
}

// Config carries the scheduler's collaborators. Sender may be nil, in
// which case notifications are logged and dropped.
type Config struct {
	Store  *store.Store
	Sender Sender
	Clock  types.Clock

	// Interval between scans. Defaults to a minute.
	Interval time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	// Defaults to ten seconds.
	StopTimeout time.Duration
	// WatchStore wakes the loop early when the users file changes on
	// disk, so reminders set by another process are picked up promptly.
	WatchStore bool
}

// Scheduler drives repeated reminder scans in a background goroutine.
type Scheduler struct {
	store       *store.Store
	sender      Sender
	clock       types.Clock
	interval    time.Duration
	stopTimeout time.Duration
	watchStore  bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	wake    chan struct{}
}

// New builds a stopped scheduler from the config, filling in defaults.
func New(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	return &Scheduler{
		store:       cfg.Store,
		sender:      cfg.Sender,
		clock:       cfg.Clock,
		interval:    cfg.Interval,
		stopTimeout: cfg.StopTimeout,
		watchStore:  cfg.WatchStore,
	}
}

// Start launches the background loop. Starting a running scheduler is a
// logged no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		slog.Warn("scheduler already running, ignoring start")
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.wake = make(chan struct{}, 1)

	slog.Info("scheduler starting", "interval", s.interval)
	go s.run(s.stop, s.done, s.wake)
}

// Stop signals the loop and waits up to the stop timeout for it to
// finish. A loop that overruns the timeout is logged as a warning and
// abandoned so process shutdown can proceed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
		slog.Info("scheduler stopped")
	case <-time.After(s.stopTimeout):
		slog.Warn("scheduler did not stop in time, abandoning", "timeout", s.stopTimeout)
	}
}

// Running reports whether the background loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(stop, done, wake chan struct{}) {
	defer close(done)

	if s.watchStore {
		cancel := s.watchStoreFile(stop, wake)
		defer cancel()
	}

	for {
		s.RunCycle()

		timer := time.NewTimer(s.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// RunCycle performs one scan-persist-deliver pass. Delivery happens
// after the store lock is released so a slow transport cannot block
// other store users.
func (s *Scheduler) RunCycle() []types.Notification {
	now := s.clock.Now()
	var notifications []types.Notification

	err := s.store.UpdateAll(func(users map[string]*types.UserData) []string {
		result := reminder.Scan(users, now)
		notifications = result.Notifications
		dirty := make([]string, 0, len(result.Dirty))
		for id := range result.Dirty {
			dirty = append(dirty, id)
		}
		return dirty
	})
	if err != nil {
		slog.Error("reminder scan failed", "error", err)
		return nil
	}

	for _, n := range notifications {
		if s.sender == nil {
			slog.Info("no sender configured, dropping notification", "user", n.UserID, "message", n.Message)
			continue
		}
		if !s.sender.Send(n.UserID, n.ChatRef, n.Message) {
			slog.Warn("notification delivery failed", "user", n.UserID)
		}
	}
	return notifications
}

// watchStoreFile wakes the loop shortly after the users file changes.
// Events are debounced because an editor save or our own atomic rename
// produces several events in quick succession. Scans are idempotent, so
// a wake caused by our own write settles without further writes.
func (s *Scheduler) watchStoreFile(stop, wake chan struct{}) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("store watch unavailable", "error", err)
		return func() {}
	}

	dir := filepath.Dir(s.store.Path())
	if err := watcher.Add(dir); err != nil {
		slog.Warn("store watch unavailable", "dir", dir, "error", err)
		watcher.Close()
		return func() {}
	}
	target := filepath.Clean(s.store.Path())
	slog.Debug("watching users file", "path", target)

	go func() {
		var debounce *time.Timer
		var debounceC <-chan time.Time
		for {
			select {
			case <-stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(500 * time.Millisecond)
					debounceC = debounce.C
				} else {
					debounce.Reset(500 * time.Millisecond)
				}
			case <-debounceC:
				debounce = nil
				debounceC = nil
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("store watch error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }
}
