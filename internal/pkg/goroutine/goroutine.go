// Package goroutine runs the service's named background tasks, such as queue
// consumers and the expiry sweeper, and waits for them on shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/stacktrace"
	"golang.org/x/sync/semaphore"
)

// DefaultLimit caps concurrent tasks when NewManager gets a non-positive limit.
const DefaultLimit = 64

// ErrPanic wraps a value recovered from a task.
var ErrPanic = errors.New("goroutine: task panicked")

// Manager runs a bounded number of named tasks and collects their errors.
type Manager struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu      sync.Mutex
	running map[string]int
	errs    []error
	closed  bool
}

// NewManager returns a Manager that runs at most limit tasks at once.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Manager{
		sem:     semaphore.NewWeighted(int64(limit)),
		running: make(map[string]int),
	}
}

// Go starts f under name. It reports false, and does not run f, when the
// manager is closed, full, or ctx is already done. An error or panic from f
// is kept for Wait.
func (m *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if m == nil {
		return false
	}
	if ctx.Err() != nil {
		slog.WarnContext(ctx, "background task not started", "task", name, "error", ctx.Err())
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		slog.WarnContext(ctx, "background task not started, manager closed", "task", name)
		return false
	}
	if !m.sem.TryAcquire(1) {
		m.mu.Unlock()
		slog.WarnContext(ctx, "background task not started, limit reached", "task", name)
		return false
	}
	m.running[name]++
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.done(name)
		if err := run(ctx, f); err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, fmt.Errorf("%s: %w", name, err))
			m.mu.Unlock()
		}
	}()
	return true
}

func run(ctx context.Context, f func(ctx context.Context) error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		slog.ErrorContext(ctx, "panic in background task", "panic", rvr, "stack", stacktrace.Stack())
		err = fmt.Errorf("%w: %v", ErrPanic, rvr)
	}()
	return f(ctx)
}

func (m *Manager) done(name string) {
	m.mu.Lock()
	if m.running[name]--; m.running[name] <= 0 {
		delete(m.running, name)
	}
	m.mu.Unlock()

	m.sem.Release(1)
	m.wg.Done()
}

// Running returns the names of tasks still in flight, sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.running))
	for name := range m.running {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Wait stops accepting tasks and blocks until every task returns or ctx is
// done. Task errors are joined; when ctx ends first its error is returned
// together with the tasks that did not finish.
func (m *Manager) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("goroutine: tasks still running %v: %w", m.Running(), ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
