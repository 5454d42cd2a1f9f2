package credits

import "context"

type store interface {
	Get(ctx context.Context, ownerID string) (Balance, error)
	EnsurePeriod(ctx context.Context, ownerID string) (Balance, error)
	Deduct(ctx context.Context, ownerID string, n int) (Balance, error)
	Reset(ctx context.Context, ownerID string) (Balance, error)
}

// Ledger is the credit gate used by the report pipeline. The check and
// the deduction are separate calls: the pipeline checks before doing
// work and deducts only after a successful analysis.
type Ledger struct {
	store store
}

// NewLedger constructs a Ledger with an in-memory store.
func NewLedger() *Ledger {
	return &Ledger{store: newMemoryStore()}
}

// NewPostgresLedger constructs a Ledger backed by Postgres.
func NewPostgresLedger(pgStore store) *Ledger {
	return &Ledger{store: pgStore}
}

// Get returns the owner's current balance, initializing defaults if absent.
func (l *Ledger) Get(ctx context.Context, ownerID string) (Balance, error) {
	return l.store.Get(ctx, ownerID)
}

// Check reports whether the owner can afford n credits. It never
// reserves anything; a concurrent spender can still win the race.
func (l *Ledger) Check(ctx context.Context, ownerID string, n int) (bool, Balance, error) {
	b, err := l.store.EnsurePeriod(ctx, ownerID)
	if err != nil {
		return false, Balance{}, err
	}
	if n <= 0 {
		return true, b, nil
	}
	return b.Used+n <= b.Limit, b, nil
}

// Deduct spends n credits, failing with ErrInsufficientCredits when
// the balance no longer covers them.
func (l *Ledger) Deduct(ctx context.Context, ownerID string, n int) (Balance, error) {
	return l.store.Deduct(ctx, ownerID, n)
}

// Reset zeroes usage and restarts the period.
func (l *Ledger) Reset(ctx context.Context, ownerID string) (Balance, error) {
	return l.store.Reset(ctx, ownerID)
}
