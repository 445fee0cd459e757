package undo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/site-report/pkg/metrics"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("no pending transaction")

// Tracker owns the transactions that are still inside their undo window,
// indexed by transaction ID and by the key of the entity they delete.
// Flush commits all of them, so a shutdown never drops a requested delete.
type Tracker struct {
	timeout time.Duration
	metrics *metrics.Metrics

	mu    sync.Mutex
	byID  map[string]*entry
	byKey map[string]*entry
}

type entry struct {
	key string
	tx  *Transaction
}

// NewTracker creates a tracker whose transactions use timeout as undo
// window. m may be nil.
func NewTracker(timeout time.Duration, m *metrics.Metrics) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout: timeout,
		metrics: m,
		byID:    make(map[string]*entry),
		byKey:   make(map[string]*entry),
	}
}

func (tr *Tracker) Timeout() time.Duration {
	return tr.timeout
}

// Schedule arms a transaction for action. Scheduling a key that is already
// pending returns the existing transaction.
func (tr *Tracker) Schedule(ctx context.Context, key string, action Action) *Transaction {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if e, ok := tr.byKey[key]; ok {
		return e.tx
	}

	logger := zerolog.Ctx(ctx).With().Str("key", key).Logger()
	wrapped := func(ctx context.Context) error {
		err := action(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("deferred delete failed")
			tr.metrics.UndoOutcome("failed")
			return err
		}
		tr.metrics.UndoOutcome("committed")
		return nil
	}

	tx := New(ctx, wrapped, tr.timeout, tr.remove)
	e := &entry{key: key, tx: tx}
	tr.byID[tx.ID()] = e
	tr.byKey[key] = e
	tr.metrics.SetUndoPending(len(tr.byID))

	logger.Debug().
		Str("transaction", tx.ID()).
		Time("expires_at", tx.ExpiresAt()).
		Msg("delete scheduled")
	return tx
}

// Cancel undoes the transaction with the given ID. It fails with
// ErrNotFound when the transaction is unknown or already committed.
func (tr *Tracker) Cancel(id string) (string, error) {
	tr.mu.Lock()
	e, ok := tr.byID[id]
	tr.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	if !e.tx.Cancel() {
		return "", fmt.Errorf("transaction %s already committed: %w", id, ErrNotFound)
	}
	tr.remove(e.tx)
	tr.metrics.UndoOutcome("cancelled")
	return e.key, nil
}

// IsPending reports whether a delete of key is waiting in its undo window.
func (tr *Tracker) IsPending(key string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	_, ok := tr.byKey[key]
	return ok
}

// Pending lists the tracked transactions, earliest expiry first.
func (tr *Tracker) Pending() []*Transaction {
	tr.mu.Lock()
	res := make([]*Transaction, 0, len(tr.byID))
	for _, e := range tr.byID {
		res = append(res, e.tx)
	}
	tr.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		return res[i].ExpiresAt().Before(res[j].ExpiresAt())
	})
	return res
}

// Flush submits every pending transaction and returns the joined errors of
// the actions that failed.
func (tr *Tracker) Flush(ctx context.Context) error {
	pending := tr.Pending()
	if len(pending) > 0 {
		zerolog.Ctx(ctx).Info().Int("count", len(pending)).Msg("flushing pending deletes")
	}

	var errs []error
	for _, tx := range pending {
		if err := tx.Submit(ctx); err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", tx.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (tr *Tracker) remove(tx *Transaction) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	e, ok := tr.byID[tx.ID()]
	if !ok {
		return
	}
	delete(tr.byID, tx.ID())
	if cur, ok := tr.byKey[e.key]; ok && cur == e {
		delete(tr.byKey, e.key)
	}
	tr.metrics.SetUndoPending(len(tr.byID))
}
