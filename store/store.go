package store

import (
	"time"

	"brainrot-pipeline/types"
)

// Store is the durable ledger behind the pipeline: job lifecycle records,
// per-day analytics counters, and dashboard-editable runtime settings.
type Store interface {
	// Jobs
	CreateJob(job *types.Job) error
	CompleteJob(id, title, description, youtubeID, youtubeURL string, completedAt time.Time) error
	FailJob(id, errMsg string, completedAt time.Time) error
	GetJob(id string) (*types.Job, error)
	ListJobs(limit, offset int) ([]types.Job, error)
	CountJobs() (int, error)
	CountJobsByStatus(status types.JobStatus) (int, error)
	// CountCompletedOn counts jobs that reached completed on the given ISO
	// date (YYYY-MM-DD). This is the admission-check input.
	CountCompletedOn(date string) (int, error)
	LatestCompletedJob() (*types.Job, error)
	DeleteJob(id string) error
	DeleteAllJobs() error

	// Analytics: each increment is an atomic upsert keyed by ISO date.
	IncrementDaily(date string, generated, uploaded, failures int) error
	GetDaily(date string) (types.DailyStats, error)
	RecentDaily(n int) ([]types.DailyStats, error)

	// Settings
	LoadRunSettings() (types.RunSettings, error)
	Settings() (map[string]string, error)
	SetSetting(key, value string) error

	Close() error
}
