package undo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is the undo window used when none is configured.
const DefaultTimeout = 10 * time.Second

type State int

const (
	StatePending State = iota
	StateCommitted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Action is the deferred, destructive operation guarded by a transaction.
type Action func(ctx context.Context) error

// Transaction defers an action until its timeout elapses. Until then it can
// be cancelled, in which case the action never runs, or submitted, in which
// case the action runs immediately. The action runs at most once.
type Transaction struct {
	id         string
	action     Action
	onComplete func(*Transaction)
	ctx        context.Context
	expiresAt  time.Time

	mu    sync.Mutex
	state State
	timer *time.Timer
	err   error
	done  chan struct{}
}

// New arms a transaction. When the timer fires the action runs with a
// context derived from ctx that is not cancelled with it, then onComplete
// runs. A non-positive timeout selects DefaultTimeout.
func New(ctx context.Context, action Action, timeout time.Duration, onComplete func(*Transaction)) *Transaction {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t := &Transaction{
		id:         uuid.NewString(),
		action:     action,
		onComplete: onComplete,
		ctx:        context.WithoutCancel(ctx),
		expiresAt:  time.Now().Add(timeout),
		done:       make(chan struct{}),
	}

	t.mu.Lock()
	t.timer = time.AfterFunc(timeout, func() {
		_ = t.commit(t.ctx)
	})
	t.mu.Unlock()

	return t
}

func (t *Transaction) ID() string {
	return t.id
}

func (t *Transaction) ExpiresAt() time.Time {
	return t.expiresAt
}

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the transaction is cancelled or its action returned.
func (t *Transaction) Done() <-chan struct{} {
	return t.done
}

// Err returns the error of the committed action, if any.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel disarms the timer. It reports whether the transaction was still
// pending; once committed or cancelled it has no effect.
func (t *Transaction) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePending {
		return false
	}
	t.timer.Stop()
	t.state = StateCancelled
	close(t.done)
	return true
}

// Submit commits right away. If the timer already fired it waits for that
// run to finish and returns its result instead of running the action again.
// Submitting a cancelled transaction is a no-op.
func (t *Transaction) Submit(ctx context.Context) error {
	return t.commit(ctx)
}

func (t *Transaction) commit(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateCancelled:
		t.mu.Unlock()
		return nil
	case StateCommitted:
		t.mu.Unlock()
		<-t.done
		return t.Err()
	}
	t.timer.Stop()
	t.state = StateCommitted
	t.mu.Unlock()

	err := t.action(ctx)

	t.mu.Lock()
	t.err = err
	t.mu.Unlock()

	if t.onComplete != nil {
		t.onComplete(t)
	}
	close(t.done)
	return err
}
