package facade

import (
	"context"
	"sync"

	"github.com/vk/graphcommit/internal/ctxlog"
	"github.com/vk/graphcommit/node"
	"github.com/vk/graphcommit/snapshot"
)

type task struct {
	ctx  context.Context
	run  func(ctx context.Context)
	done chan struct{}
}

// StateChangeFunc observes a committed change. changes is the set of
// nodes whose value the commit actually updated, snap is the resulting
// snapshot.
type StateChangeFunc func(changes map[node.Node]struct{}, snap *snapshot.Snapshot)

// Facade is a mutable, thread-safe wrapper around a snapshot.Snapshot.
// Configuration changes and commits are serialized onto a single
// background worker; SetValue and Commit are fire-and-forget from the
// caller's perspective, WaitForAllPending blocks until every task
// enqueued so far has drained.
type Facade struct {
	continueAborted bool
	parallelCommit  bool
	queueDepth      int

	mu                 sync.Mutex
	current            *snapshot.Snapshot
	autoCommitDisabled int

	cancelMu      sync.Mutex
	cancelCurrent context.CancelFunc

	listenersMu sync.Mutex
	listeners   []StateChangeFunc

	tasks  chan task
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New wraps initial behind a Facade and starts its background worker.
func New(initial *snapshot.Snapshot, opts ...Option) *Facade {
	f := &Facade{
		current:        initial,
		parallelCommit: true,
		queueDepth:     64,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.tasks = make(chan task, f.queueDepth)

	f.wg.Add(1)
	go f.run()
	return f
}

func (f *Facade) run() {
	defer f.wg.Done()
	for {
		select {
		case t, ok := <-f.tasks:
			if !ok {
				return
			}
			t.run(t.ctx)
			close(t.done)
		case <-f.stopCh:
			return
		}
	}
}

// Close stops the background worker. Tasks already queued but not yet
// started are dropped; callers that need every enqueued task to finish
// should call WaitForAllPending before Close.
func (f *Facade) Close() {
	close(f.stopCh)
	f.wg.Wait()
}

// Current returns the live snapshot. It may be inconsistent if a commit
// is in flight or was never triggered after a SetValue.
func (f *Facade) Current() *snapshot.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// SetValue stages a new value for input on the live snapshot and, unless
// auto-commit is suspended, enqueues a commit. It returns the snapshot
// immediately after staging, before the enqueued commit (if any) has
// run; observe OnStateChanged or call WaitForAllPending to know when it
// completes.
func (f *Facade) SetValue(input node.Input, value any, allowCancellation, alwaysCommit bool) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	next, err := f.current.ChangeValue(input, value)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.current = next
	suspended := f.autoCommitDisabled > 0
	f.mu.Unlock()

	if suspended && !alwaysCommit {
		return next, nil
	}
	f.enqueueCommit(allowCancellation)
	return next, nil
}

// Commit enqueues a commit of the live snapshot without first changing
// any value.
func (f *Facade) Commit(allowCancellation bool) {
	f.enqueueCommit(allowCancellation)
}

// WaitForAllPending blocks until every task enqueued up to this call has
// finished running, using a trailing no-op task as a barrier.
func (f *Facade) WaitForAllPending() {
	done := make(chan struct{})
	f.tasks <- task{ctx: context.Background(), done: done, run: func(context.Context) {}}
	<-done
}

// nextTaskContext derives the context the next enqueued task runs under
// and signals whatever task is currently outstanding: every configuration
// change and commit carries its own cancellation token source, and
// enqueuing a new one always cancels the token of the task it displaces,
// whether that task is a commit or a registration in flight.
func (f *Facade) nextTaskContext(allowCancellation bool) context.Context {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if allowCancellation {
		ctx, cancel = context.WithCancel(ctx)
	}

	f.cancelMu.Lock()
	prevCancel := f.cancelCurrent
	f.cancelCurrent = cancel
	f.cancelMu.Unlock()
	if prevCancel != nil {
		prevCancel()
	}
	return ctx
}

func (f *Facade) enqueueCommit(allowCancellation bool) {
	ctx := f.nextTaskContext(allowCancellation)
	done := make(chan struct{})
	f.tasks <- task{ctx: ctx, done: done, run: f.runCommit}
}

func (f *Facade) runCommit(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	f.mu.Lock()
	snap := f.current
	f.mu.Unlock()

	result, changes, err := snap.Commit(ctx, f.parallelCommit)
	if err != nil {
		logger.Error("commit failed", "error", err)
		return
	}

	f.mu.Lock()
	if ctx.Err() != nil || !result.IsConsistent() {
		if !f.continueAborted {
			f.mu.Unlock()
			return
		}
		result = f.replayLiveChanges(result)
	}
	f.current = result
	f.mu.Unlock()

	if len(changes) > 0 {
		f.notify(changes, result)
	}
}

// replayLiveChanges adopts partial into the live configuration: any input
// that was mutated on f.current while the cancelled commit was running is
// reapplied on top of partial's (possibly stale) value for that input.
// Must be called with f.mu held.
func (f *Facade) replayLiveChanges(partial *snapshot.Snapshot) *snapshot.Snapshot {
	live := f.current
	for n := range live.Changes() {
		input, ok := n.(node.Input)
		if !ok {
			continue
		}
		liveValue, err := live.GetValue(n)
		if err != nil {
			continue
		}
		if replayed, err := partial.ChangeObjectValue(input, liveValue); err == nil {
			partial = replayed
		}
	}
	return partial
}

// DisableAutoCommit suspends automatic commits triggered by SetValue
// until the returned guard is closed. Guards nest: while any guard
// returned by a still-open call is outstanding, SetValue(..., alwaysCommit=false)
// only stages the value. Closing the last outstanding guard schedules
// one commit.
func (f *Facade) DisableAutoCommit() *AutoCommitGuard {
	f.mu.Lock()
	f.autoCommitDisabled++
	f.mu.Unlock()
	return &AutoCommitGuard{f: f}
}

// AutoCommitGuard is returned by DisableAutoCommit; Close releases it.
type AutoCommitGuard struct {
	f      *Facade
	closed bool
}

// Close releases the guard. It is safe to call more than once.
func (g *AutoCommitGuard) Close() {
	if g.closed {
		return
	}
	g.closed = true
	f := g.f
	f.mu.Lock()
	f.autoCommitDisabled--
	last := f.autoCommitDisabled == 0
	f.mu.Unlock()
	if last {
		f.enqueueCommit(true)
	}
}

// OnStateChanged subscribes fn to every committed change. The returned
// function unsubscribes it.
func (f *Facade) OnStateChanged(fn StateChangeFunc) func() {
	f.listenersMu.Lock()
	id := len(f.listeners)
	f.listeners = append(f.listeners, fn)
	f.listenersMu.Unlock()
	return func() {
		f.listenersMu.Lock()
		f.listeners[id] = nil
		f.listenersMu.Unlock()
	}
}

func (f *Facade) notify(changes map[node.Node]struct{}, snap *snapshot.Snapshot) {
	f.listenersMu.Lock()
	listeners := append([]StateChangeFunc(nil), f.listeners...)
	f.listenersMu.Unlock()
	for _, l := range listeners {
		if l != nil {
			l(changes, snap)
		}
	}
}

// RegisterNodes runs stage against a builder seeded from the live
// snapshot's configuration, on the serialized queue, and swaps in the
// freshly built snapshot on success. It blocks until the staging
// function has run, since callers need its error (if any) synchronously.
// Enqueuing it signals the token of whatever commit is currently in
// flight, the same coalescing enqueueCommit does for a second commit.
func (f *Facade) RegisterNodes(stage func(b snapshot.BuilderLike) error) error {
	ctx := f.nextTaskContext(true)
	result := make(chan error, 1)
	done := make(chan struct{})
	f.tasks <- task{ctx: ctx, done: done, run: func(ctx context.Context) {
		f.mu.Lock()
		current := f.current
		f.mu.Unlock()

		if ctx.Err() != nil {
			result <- ctx.Err()
			return
		}

		b, err := current.ChangeConfiguration()
		if err != nil {
			result <- err
			return
		}
		if err := stage(b); err != nil {
			result <- err
			return
		}
		next, err := b.Build()
		if err != nil {
			result <- err
			return
		}

		f.mu.Lock()
		f.current = next
		f.mu.Unlock()
		result <- nil
	}}
	<-done
	return <-result
}

// RegisterInput stages input with its initial value and rebuilds the
// network.
func (f *Facade) RegisterInput(input node.Input, initial any) error {
	return f.RegisterNodes(func(b snapshot.BuilderLike) error {
		_, err := b.AddInput(input, initial)
		return err
	})
}

// RegisterDerived stages derived and rebuilds the network.
func (f *Facade) RegisterDerived(derived node.Derived) error {
	return f.RegisterNodes(func(b snapshot.BuilderLike) error {
		_, err := b.AddCalculation(derived)
		return err
	})
}

// RemoveNodeAndDependents stages n and its transitive dependents for
// removal and rebuilds the network.
func (f *Facade) RemoveNodeAndDependents(n node.Node) error {
	return f.RegisterNodes(func(b snapshot.BuilderLike) error {
		b.RemoveNodeAndDependents(n)
		return nil
	})
}
