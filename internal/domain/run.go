package domain

import "time"

// RunInfo carries the human-readable time frame of one watch run,
// derived from the sorted item collection.
type RunInfo struct {
	NowDate  string // "01-02"
	ExecTime string // "2006-01-02 15:04:05"
	Range    string // "<earliest pub date> ~ <latest pub date>"
}

// RunStats holds counters for one watch run.
type RunStats struct {
	Keywords   int
	Fetched    int
	New        int
	Duplicates int
	TooOld     int
	Unparsable int
	SearchErrs int
	SinkErrs   int
	Persisted  int
	Duration   time.Duration
}

// WatchState is the per-deployment run ledger persisted across runs.
type WatchState struct {
	ID            int64     `db:"id"`
	LastRunAt     time.Time `db:"last_run_at"`
	TotalNotified int64     `db:"total_notified"`
	TotalRuns     int64     `db:"total_runs"`
}
