package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"pixiv_watcher/internal/domain"
)

// watchStateID is the single bookkeeping row; the watcher is a
// one-deployment service.
const watchStateID = 1

type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

func (s *RunStateStore) Get(ctx context.Context) (*domain.WatchState, error) {
	var state domain.WatchState
	query := `
		SELECT id, last_run_at, total_notified, total_runs
		FROM watch_state
		WHERE id = $1`

	err := s.db.GetContext(ctx, &state, query, watchStateID)
	if errors.Is(err, sql.ErrNoRows) {
		// First run on a fresh database
		return &domain.WatchState{
			ID:        watchStateID,
			LastRunAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RunStateStore) Update(ctx context.Context, state *domain.WatchState) error {
	query := `
		INSERT INTO watch_state (id, last_run_at, total_notified, total_runs)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			total_notified = EXCLUDED.total_notified,
			total_runs = EXCLUDED.total_runs`

	_, err := s.db.ExecContext(ctx, query,
		watchStateID,
		state.LastRunAt,
		state.TotalNotified,
		state.TotalRuns,
	)
	return err
}
