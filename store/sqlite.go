package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"brainrot-pipeline/types"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Busy timeout to avoid SQLITE_BUSY in concurrent access.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		character TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		youtube_id TEXT NOT NULL DEFAULT '',
		youtube_url TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		completed_at TEXT
	);
	CREATE TABLE IF NOT EXISTS analytics (
		date TEXT PRIMARY KEY,
		videos_generated INTEGER NOT NULL DEFAULT 0,
		videos_uploaded INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateJob(job *types.Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job.ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, type, status, character, topic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Type), string(job.Status), job.Character, job.Topic,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CompleteJob(id, title, description, youtubeID, youtubeURL string, completedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE jobs
		SET status = ?, title = ?, description = ?, youtube_id = ?, youtube_url = ?, error = '', completed_at = ?
		WHERE id = ?`,
		string(types.StatusCompleted), title, description, youtubeID, youtubeURL,
		completedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FailJob(id, errMsg string, completedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		string(types.StatusFailed), errMsg, completedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

const jobColumns = `id, type, status, character, topic, title, description, youtube_id, youtube_url, error, created_at, completed_at`

func (s *SQLiteStore) GetJob(id string) (*types.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(limit, offset int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountJobs() (int, error) {
	return s.countRow(`SELECT COUNT(*) FROM jobs`)
}

func (s *SQLiteStore) CountJobsByStatus(status types.JobStatus) (int, error) {
	return s.countRow(`SELECT COUNT(*) FROM jobs WHERE status = ?`, string(status))
}

func (s *SQLiteStore) CountCompletedOn(date string) (int, error) {
	return s.countRow(
		`SELECT COUNT(*) FROM jobs WHERE status = ? AND substr(completed_at, 1, 10) = ?`,
		string(types.StatusCompleted), date,
	)
}

func (s *SQLiteStore) countRow(query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) LatestCompletedJob() (*types.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs
		WHERE status = ? ORDER BY completed_at DESC LIMIT 1`, string(types.StatusCompleted))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) DeleteJob(id string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAllJobs() error {
	_, err := s.db.Exec(`DELETE FROM jobs`)
	if err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}
	return nil
}

// IncrementDaily bumps the day's counters, inserting the row if absent. Each
// call is a single atomic statement.
func (s *SQLiteStore) IncrementDaily(date string, generated, uploaded, failures int) error {
	_, err := s.db.Exec(`INSERT INTO analytics (date, videos_generated, videos_uploaded, failures)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			videos_generated = videos_generated + excluded.videos_generated,
			videos_uploaded = videos_uploaded + excluded.videos_uploaded,
			failures = failures + excluded.failures`,
		date, generated, uploaded, failures,
	)
	if err != nil {
		return fmt.Errorf("increment daily: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDaily(date string) (types.DailyStats, error) {
	stats := types.DailyStats{Date: date}
	err := s.db.QueryRow(`SELECT videos_generated, videos_uploaded, failures FROM analytics WHERE date = ?`, date).
		Scan(&stats.Generated, &stats.Uploaded, &stats.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("get daily: %w", err)
	}
	return stats, nil
}

func (s *SQLiteStore) RecentDaily(n int) ([]types.DailyStats, error) {
	if n <= 0 {
		n = 7
	}
	rows, err := s.db.Query(`SELECT date, videos_generated, videos_uploaded, failures
		FROM analytics ORDER BY date DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent daily: %w", err)
	}
	defer rows.Close()

	var out []types.DailyStats
	for rows.Next() {
		var d types.DailyStats
		if err := rows.Scan(&d.Date, &d.Generated, &d.Uploaded, &d.Failures); err != nil {
			return nil, fmt.Errorf("scan daily: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LoadRunSettings reads the runtime settings, applying defaults for anything
// unset or malformed. Values are stored as JSON strings.
func (s *SQLiteStore) LoadRunSettings() (types.RunSettings, error) {
	settings := types.DefaultRunSettings()
	kv, err := s.Settings()
	if err != nil {
		return settings, err
	}

	if raw, ok := kv["videosPerDay"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 1 {
			settings.VideosPerDay = n
		}
	}
	if raw, ok := kv["contentTypes"]; ok {
		var parsed []types.ContentType
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			var valid []types.ContentType
			for _, t := range parsed {
				if types.ValidContentType(t) {
					valid = append(valid, t)
				}
			}
			if len(valid) > 0 {
				settings.ContentTypes = valid
			}
		}
	}
	if raw, ok := kv["uploadEnabled"]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			settings.UploadEnabled = b
		}
	}
	return settings, nil
}

func (s *SQLiteStore) Settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*types.Job, error) {
	var job types.Job
	var typ, status, created string
	var completed sql.NullString

	if err := r.Scan(
		&job.ID, &typ, &status, &job.Character, &job.Topic,
		&job.Title, &job.Description, &job.YouTubeID, &job.YouTubeURL,
		&job.Error, &created, &completed,
	); err != nil {
		return nil, err
	}

	job.Type = types.ContentType(typ)
	job.Status = types.JobStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		job.CreatedAt = t
	}
	if completed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completed.String); err == nil {
			job.CompletedAt = &t
		}
	}
	return &job, nil
}
