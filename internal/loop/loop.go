// Package loop implements the server's run-queue: a single goroutine that
// executes posted callbacks one at a time in FIFO order, plus bookkeeping for
// the tasks those callbacks spawn.
//
// Producers on other goroutines (the frame reader, the workspace watcher)
// hand work over with CallSoon, which never blocks. That call is the only
// synchronization point between the blocking I/O side and the dispatch side.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Run when the loop was already stopped.
var ErrStopped = errors.New("loop: stopped")

// Callback is a unit of work executed on the loop goroutine.
type Callback func(ctx context.Context)

// Loop is a cooperative run-queue. The zero value is not usable; use New.
type Loop struct {
	log *slog.Logger

	mu      sync.Mutex
	queue   []Callback
	stopped bool
	running bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	onStop   []func()

	tasks   sync.WaitGroup
	active  int // guarded by mu
	waiters []chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets a custom logger for the Loop.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.log = l
		}
	}
}

// WithOnStop registers fn to run exactly once when the loop is stopped.
func WithOnStop(fn func()) Option {
	return func(lp *Loop) {
		if fn != nil {
			lp.onStop = append(lp.onStop, fn)
		}
	}
}

// New constructs an idle Loop.
func New(opts ...Option) *Loop {
	lp := &Loop{
		log:    slog.Default(),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(lp)
		}
	}
	return lp
}

// CallSoon schedules fn to run on the loop goroutine after every callback
// posted before it. It is safe to call from any goroutine and never blocks.
// It reports false, dropping fn, once the loop has been stopped.
func (lp *Loop) CallSoon(fn Callback) bool {
	if fn == nil {
		return false
	}

	lp.mu.Lock()
	if lp.stopped {
		lp.mu.Unlock()
		return false
	}
	lp.queue = append(lp.queue, fn)
	lp.mu.Unlock()

	select {
	case lp.wake <- struct{}{}:
	default:
	}
	return true
}

// Go starts fn as a tracked task. Run waits for tracked tasks before
// returning. Tasks receive the loop's task context, which is cancelled when
// the loop stops.
func (lp *Loop) Go(ctx context.Context, fn Callback) {
	lp.mu.Lock()
	lp.active++
	lp.mu.Unlock()

	lp.tasks.Add(1)
	go func() {
		defer lp.tasks.Done()
		defer lp.taskDone()
		fn(ctx)
	}()
}

func (lp *Loop) taskDone() {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.active--
	if lp.active == 0 {
		for _, ch := range lp.waiters {
			close(ch)
		}
		lp.waiters = nil
	}
}

// StopWhenIdle stops the loop after every callback queued before it has run
// and every task has finished. Tasks started meanwhile delay the stop. It
// reports false if the loop is already stopped.
func (lp *Loop) StopWhenIdle() bool {
	return lp.CallSoon(func(context.Context) {
		lp.mu.Lock()
		if lp.active == 0 {
			lp.mu.Unlock()
			lp.Stop()
			return
		}
		ch := make(chan struct{})
		lp.waiters = append(lp.waiters, ch)
		lp.mu.Unlock()

		go func() {
			<-ch
			lp.Stop()
		}()
	})
}

// Stop asks the loop to finish. Callbacks already queued are discarded and
// later CallSoon calls are rejected. Stop is idempotent and reports whether
// this call was the one that stopped the loop.
func (lp *Loop) Stop() bool {
	stopped := false
	lp.stopOnce.Do(func() {
		stopped = true

		lp.mu.Lock()
		lp.stopped = true
		dropped := len(lp.queue)
		lp.queue = nil
		lp.mu.Unlock()

		if dropped > 0 {
			lp.log.Debug("loop.stop.dropped", slog.Int("callbacks", dropped))
		}
		close(lp.stopCh)

		for _, fn := range lp.onStop {
			fn()
		}
	})
	return stopped
}

// Done is closed once Stop has been called.
func (lp *Loop) Done() <-chan struct{} {
	return lp.stopCh
}

// Stopped reports whether Stop has been called.
func (lp *Loop) Stopped() bool {
	select {
	case <-lp.stopCh:
		return true
	default:
		return false
	}
}

// Run executes queued callbacks until Stop is called or ctx is cancelled,
// then cancels the task context and waits for every task started with Go.
// It returns nil after Stop and ctx.Err() when ctx ended the loop. Run may be
// called at most once.
func (lp *Loop) Run(ctx context.Context) error {
	lp.mu.Lock()
	if lp.running {
		lp.mu.Unlock()
		return errors.New("loop: already running")
	}
	lp.running = true
	lp.mu.Unlock()

	if lp.Stopped() {
		return ErrStopped
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		lp.tasks.Wait()
	}()

	lp.log.Info("loop.start")
	for {
		select {
		case <-ctx.Done():
			lp.Stop()
			lp.log.Info("loop.end", slog.String("reason", "context"))
			return ctx.Err()
		case <-lp.stopCh:
			lp.log.Info("loop.end", slog.String("reason", "stop"))
			return nil
		case <-lp.wake:
		}

		for {
			fn, ok := lp.next()
			if !ok {
				break
			}
			fn(taskCtx)
			if lp.Stopped() {
				break
			}
		}
	}
}

func (lp *Loop) next() (Callback, bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.stopped || len(lp.queue) == 0 {
		return nil, false
	}
	fn := lp.queue[0]
	lp.queue[0] = nil
	lp.queue = lp.queue[1:]
	return fn, true
}
