package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"pixiv_watcher/internal/domain"
)

// Watcher runs one watch pass.
type Watcher interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

// Trigger exposes the watch pipeline behind GET /trigger. Runs are
// single-flight: the pipeline is not safe for overlapping invocations, so
// a trigger arriving while a run is active is refused.
type Trigger struct {
	watcher Watcher
	logger  *slog.Logger
	mu      sync.Mutex
}

func NewTrigger(watcher Watcher, logger *slog.Logger) *Trigger {
	return &Trigger{watcher: watcher, logger: logger}
}

func (t *Trigger) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trigger", t.handleTrigger)
	return mux
}

func (t *Trigger) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !t.mu.TryLock() {
		http.Error(w, "run already in progress", http.StatusConflict)
		return
	}
	defer t.mu.Unlock()

	// Run failures are a logging concern, not part of the trigger contract;
	// the caller always sees success once the run has executed.
	if _, err := t.watcher.Run(r.Context()); err != nil {
		t.logger.Error("watch run failed", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Executed successfully"))
}
