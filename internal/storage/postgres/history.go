package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// HistoryStore persists the identifiers of novels already notified.
// Retention is bounded: rows beyond the most recent limit are evicted at
// save time, never at load time.
type HistoryStore struct {
	db    *sqlx.DB
	tm    *TransactionManager
	limit int
}

func NewHistoryStore(db *sqlx.DB, limit int) *HistoryStore {
	return &HistoryStore{db: db, tm: NewTransactionManager(db), limit: limit}
}

// LoadAll returns every persisted identifier as a set.
func (s *HistoryStore) LoadAll(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM sent_novels"); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	result := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		result[id] = struct{}{}
	}
	return result, nil
}

// UpsertMany inserts-or-touches the given identifiers and trims the table
// to the retention limit, atomically.
func (s *HistoryStore) UpsertMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return s.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, s.db)

		_, err := exec.ExecContext(txCtx, `
			INSERT INTO sent_novels (id)
			SELECT unnest($1::text[])
			ON CONFLICT (id) DO UPDATE SET sent_at = NOW()`,
			pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("upsert history: %w", err)
		}

		if s.limit > 0 {
			_, err = exec.ExecContext(txCtx, `
				DELETE FROM sent_novels
				WHERE id NOT IN (
					SELECT id FROM sent_novels
					ORDER BY sent_at DESC, id DESC
					LIMIT $1
				)`,
				s.limit,
			)
			if err != nil {
				return fmt.Errorf("trim history: %w", err)
			}
		}

		return nil
	})
}
