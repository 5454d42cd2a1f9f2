package credits

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed credit store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Get(ctx context.Context, ownerID string) (Balance, error) {
	return s.ensure(ctx, ownerID)
}

func (s *pgStore) EnsurePeriod(ctx context.Context, ownerID string) (Balance, error) {
	return s.ensure(ctx, ownerID)
}

func (s *pgStore) Deduct(ctx context.Context, ownerID string, n int) (Balance, error) {
	if n <= 0 {
		return s.ensure(ctx, ownerID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	b, err := s.lockAndEnsure(ctx, tx, ownerID)
	if err != nil {
		return Balance{}, err
	}
	if b.Used+n > b.Limit {
		err = ErrInsufficientCredits
		return Balance{}, err
	}
	b.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE credits SET used = $1 WHERE owner_id = $2`, b.Used, ownerID); err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *pgStore) Reset(ctx context.Context, ownerID string) (Balance, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	resetsAt := time.Now().UTC().Add(resetPeriod)
	if _, err = tx.ExecContext(ctx, `
INSERT INTO credits (owner_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (owner_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at`,
		ownerID, defaultPlan, defaultLimit, resetsAt); err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return Balance{Plan: defaultPlan, Limit: defaultLimit, Used: 0, ResetsAt: resetsAt}, nil
}

func (s *pgStore) ensure(ctx context.Context, ownerID string) (Balance, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Balance{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	b, err := s.lockAndEnsure(ctx, tx, ownerID)
	if err != nil {
		return Balance{}, err
	}
	if err = tx.Commit(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, ownerID string) (Balance, error) {
	var b Balance
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM credits WHERE owner_id = $1 FOR UPDATE`, ownerID)
	err := row.Scan(&b.Plan, &b.Limit, &b.Used, &b.ResetsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b = defaultBalance()
			if _, err = tx.ExecContext(ctx, `
INSERT INTO credits (owner_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)`,
				ownerID, b.Plan, b.Limit, b.Used, b.ResetsAt); err != nil {
				return Balance{}, err
			}
			return b, nil
		}
		return Balance{}, err
	}

	now := time.Now().UTC()
	if now.After(b.ResetsAt) || now.Equal(b.ResetsAt) {
		b.Used = 0
		b.ResetsAt = now.Add(resetPeriod)
		if _, err = tx.ExecContext(ctx, `UPDATE credits SET used = $1, resets_at = $2 WHERE owner_id = $3`, b.Used, b.ResetsAt, ownerID); err != nil {
			return Balance{}, err
		}
	}
	return b, nil
}
