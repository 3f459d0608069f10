package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"pixiv_watcher/internal/domain"
)

// NovelSource is the upstream Pixiv collaborator.
type NovelSource interface {
	Auth(ctx context.Context) error
	SearchNovels(ctx context.Context, word, target string) ([]domain.Novel, error)
	NovelText(ctx context.Context, novelID string) (string, error)
}

// HistoryStore persists the seen-set across runs.
type HistoryStore interface {
	LoadAll(ctx context.Context) (map[string]struct{}, error)
	UpsertMany(ctx context.Context, ids []string) error
}

// RunStateStore records run bookkeeping (last run time, totals).
type RunStateStore interface {
	Get(ctx context.Context) (*domain.WatchState, error)
	Update(ctx context.Context, state *domain.WatchState) error
}

// Sink delivers one run's aggregated items over a notification channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, items []domain.NovelItem, info domain.RunInfo) error
}
