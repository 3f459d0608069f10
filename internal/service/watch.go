package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/domain"
)

// searchMode pairs a log label with the API search_target value.
type searchMode struct {
	label  string
	target string
}

// Exactly two search strategies per keyword: tag partial match and
// title/caption match.
var searchModes = []searchMode{
	{label: "tag", target: "partial_match_for_tags"},
	{label: "title/caption", target: "title_and_caption"},
}

// WatchService runs the full watch pipeline: search every keyword in both
// modes, filter by lookback window, deduplicate against history, enrich,
// sort, dispatch to sinks, and persist newly seen identifiers.
type WatchService struct {
	source   NovelSource
	history  HistoryStore
	runState RunStateStore
	sinks    []Sink
	enricher *Enricher
	logger   *slog.Logger
	cfg      config.WatchConfig

	now func() time.Time
}

func NewWatchService(
	source NovelSource,
	history HistoryStore,
	runState RunStateStore,
	sinks []Sink,
	logger *slog.Logger,
	cfg config.WatchConfig,
) *WatchService {
	return &WatchService{
		source:   source,
		history:  history,
		runState: runState,
		sinks:    sinks,
		enricher: NewEnricher(source, cfg.PreviewLen, logger.With("component", "enricher")),
		logger:   logger,
		cfg:      cfg,
		now:      referenceNow,
	}
}

// Run executes one watch pass. Auth failure aborts before any history
// mutation; search, enrichment, delivery, and persistence failures are
// logged and isolated so the rest of the run proceeds.
func (s *WatchService) Run(ctx context.Context) (*domain.RunStats, error) {
	start := time.Now()

	keywords := s.cfg.KeywordList()
	stats := &domain.RunStats{Keywords: len(keywords)}
	if len(keywords) == 0 {
		return stats, fmt.Errorf("no search keywords configured")
	}

	now := s.now()
	threshold := now.Add(-time.Duration(s.cfg.MaxDays * 24 * float64(time.Hour)))

	s.logger.Info("starting watch run",
		"now", now.Format("2006-01-02 15:04:05"),
		"threshold", threshold.Format("2006-01-02 15:04:05"),
		"keywords", len(keywords),
	)

	if err := s.source.Auth(ctx); err != nil {
		s.logger.Error("pixiv auth failed", "error", err)
		return nil, fmt.Errorf("auth: %w", err)
	}

	sent, err := s.history.LoadAll(ctx)
	if err != nil {
		s.logger.Error("load history failed, continuing with empty seen-set", "error", err)
		sent = map[string]struct{}{}
	}

	dedup := newDeduplicator(sent)
	var collected []domain.NovelItem

	for _, word := range keywords {
		s.logger.Info("searching keyword", "keyword", word)

		for _, mode := range searchModes {
			novels, err := s.source.SearchNovels(ctx, word, mode.target)
			if err != nil {
				stats.SearchErrs++
				s.logger.Warn("search request failed",
					"keyword", word, "mode", mode.label, "error", err)
				continue
			}
			stats.Fetched += len(novels)

			for _, novel := range novels {
				if dedup.seen(novel.ID) {
					stats.Duplicates++
					continue
				}

				publishedAt, err := parseCreateDate(novel.CreateDate)
				if err != nil {
					stats.Unparsable++
					s.logger.Debug("unparsable create date",
						"novel_id", novel.ID, "create_date", novel.CreateDate)
					continue
				}
				if !withinWindow(publishedAt, threshold) {
					stats.TooOld++
					continue
				}

				s.logger.Info("new novel found",
					"mode", mode.label, "novel_id", novel.ID, "title", novel.Title)

				collected = append(collected, s.enricher.Enrich(ctx, novel, publishedAt))
				dedup.mark(novel.ID)
			}

			sleep(ctx, s.cfg.RequestPause)
		}
	}

	if len(collected) == 0 {
		s.logger.Info("no new novels", "lookback_hours", s.cfg.MaxDays*24)
		stats.Duration = time.Since(start)
		s.updateRunState(ctx, stats)
		return stats, nil
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].PublishedAt.Before(collected[j].PublishedAt)
	})

	info := domain.RunInfo{
		NowDate:  now.Format("01-02"),
		ExecTime: now.Format("2006-01-02 15:04:05"),
		Range:    fmt.Sprintf("%s ~ %s", collected[0].PubDate, collected[len(collected)-1].PubDate),
	}

	// newest first for presentation
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	stats.New = len(collected)

	for _, sink := range s.sinks {
		if err := sink.Send(ctx, collected, info); err != nil {
			stats.SinkErrs++
			s.logger.Error("sink delivery failed", "sink", sink.Name(), "error", err)
		}
	}

	newIDs := dedup.admitted()
	if err := s.history.UpsertMany(ctx, newIDs); err != nil {
		s.logger.Error("persist history failed", "error", err)
	} else {
		stats.Persisted = len(newIDs)
		s.logger.Info("history updated", "added", len(newIDs))
	}

	stats.Duration = time.Since(start)
	s.updateRunState(ctx, stats)

	s.logger.Info("watch run completed",
		"new", stats.New,
		"duplicates", stats.Duplicates,
		"too_old", stats.TooOld,
		"unparsable", stats.Unparsable,
		"search_errors", stats.SearchErrs,
		"sink_errors", stats.SinkErrs,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *WatchService) updateRunState(ctx context.Context, stats *domain.RunStats) {
	if s.runState == nil {
		return
	}

	state, err := s.runState.Get(ctx)
	if err != nil {
		s.logger.Warn("load run state failed", "error", err)
		return
	}

	state.LastRunAt = time.Now()
	state.TotalRuns++
	state.TotalNotified += int64(stats.New)

	if err := s.runState.Update(ctx, state); err != nil {
		s.logger.Warn("update run state failed", "error", err)
	}
}

// sleep pauses between search requests to stay under upstream rate limits.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
