package types

import "time"

// ContentType is one of the supported video formats.
type ContentType string

const (
	ContentStorytelling ContentType = "storytelling"
	ContentDance        ContentType = "dance"
	ContentTop5         ContentType = "top5"
)

// AllContentTypes lists every supported content type.
var AllContentTypes = []ContentType{ContentStorytelling, ContentDance, ContentTop5}

// ValidContentType reports whether t is a known content type.
func ValidContentType(t ContentType) bool {
	for _, c := range AllContentTypes {
		if c == t {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle status of a Job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one video generation run from creation to terminal state.
type Job struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Status      JobStatus   `json:"status"`
	Character   string      `json:"character"`
	Topic       string      `json:"topic,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	YouTubeID   string      `json:"youtube_id,omitempty"`
	YouTubeURL  string      `json:"youtube_url,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// DailyStats holds per-day counters keyed by ISO date (YYYY-MM-DD).
type DailyStats struct {
	Date      string `json:"date"`
	Generated int    `json:"videos_generated"`
	Uploaded  int    `json:"videos_uploaded"`
	Failures  int    `json:"failures"`
}

// RunSettings is the runtime configuration read fresh at the start of each run.
// It is a value type: a dashboard edit mid-run does not affect the run that
// already loaded it.
type RunSettings struct {
	VideosPerDay  int           `json:"videosPerDay"`
	ContentTypes  []ContentType `json:"contentTypes"`
	UploadEnabled bool          `json:"uploadEnabled"`
}

// DefaultRunSettings mirrors the defaults applied when no setting is stored.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		VideosPerDay:  5,
		ContentTypes:  append([]ContentType(nil), AllContentTypes...),
		UploadEnabled: true,
	}
}

// Outcome tags the result of one orchestrator run.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// RunResult is the tagged outcome of a single pipeline run.
type RunResult struct {
	Outcome Outcome `json:"outcome"`

	// Skip payload
	TodayCount int    `json:"today_count,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Message    string `json:"message,omitempty"`

	// Success payload
	JobID      string      `json:"job_id,omitempty"`
	Title      string      `json:"title,omitempty"`
	YouTubeURL string      `json:"youtube_url,omitempty"`
	Character  string      `json:"character,omitempty"`
	Type       ContentType `json:"type,omitempty"`

	// Failure payload
	Error string `json:"error,omitempty"`
}
