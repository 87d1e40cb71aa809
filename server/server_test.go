package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainrot-pipeline/store"
	"brainrot-pipeline/types"
)

type stubRunner struct {
	result types.RunResult
	err    error
	calls  int
}

func (s *stubRunner) Run(_ context.Context) (types.RunResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHTTPServer(svc, ":0").Handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: &stubRunner{}})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestGenerate_RequiresCredentialWhenSecretSet(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{Outcome: types.OutcomeCompleted}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner, CronSecret: "s3cret"})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", decodeBody(t, resp)["error"])
	assert.Zero(t, runner.calls, "unauthorized calls must not trigger a run")
}

func TestGenerate_AcceptsBearerSecret(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{Outcome: types.OutcomeCompleted, JobID: "j1"}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner, CronSecret: "s3cret"})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/cron/generate", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)
	resp.Body.Close()
}

func TestGenerate_AcceptsSchedulerHeader(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{Outcome: types.OutcomeCompleted}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner, CronSecret: "s3cret"})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/cron/generate", nil)
	req.Header.Set(HeaderCronTrigger, "1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)
	resp.Body.Close()
}

func TestGenerate_OpenWithoutSecret(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{Outcome: types.OutcomeCompleted}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGenerate_SkippedResponse(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{
		Outcome:    types.OutcomeSkipped,
		TodayCount: 5,
		Limit:      5,
		Message:    "Daily limit reached: 5/5 videos already generated today",
	}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["message"], "Daily limit reached")
	assert.EqualValues(t, 5, body["todayCount"])
	assert.EqualValues(t, 5, body["limit"])
}

func TestGenerate_CompletedResponse(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{
		Outcome:    types.OutcomeCompleted,
		JobID:      "job-1",
		Title:      "POV: Skibidi Rizzler Goes Viral 💀",
		YouTubeURL: "https://www.youtube.com/watch?v=abc",
		Character:  "Skibidi Rizzler",
		Type:       types.ContentStorytelling,
	}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", body["youtubeUrl"])
	assert.Equal(t, "storytelling", body["type"])
}

func TestGenerate_FailedResponse(t *testing.T) {
	runner := &stubRunner{result: types.RunResult{
		Outcome: types.OutcomeFailed,
		JobID:   "job-2",
		Error:   "no images could be generated",
	}}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "no images could be generated", body["error"])
	assert.Equal(t, "job-2", body["jobId"])
}

func TestGenerate_RunnerErrorIs500(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("load settings: database is locked")}
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: runner})

	resp, err := http.Get(srv.URL + "/api/cron/generate")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}

func seedJobs(t *testing.T, st *store.SQLiteStore, n int) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%02d", i)
		require.NoError(t, st.CreateJob(&types.Job{
			ID:        id,
			Type:      types.ContentDance,
			Status:    types.StatusProcessing,
			Character: "Sigma Wolf",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
		require.NoError(t, st.CompleteJob(id, "title", "desc", "", "", time.Now().UTC()))
	}
}

func TestListJobs_PaginationAndStats(t *testing.T) {
	st := newTestStore(t)
	seedJobs(t, st, 5)
	require.NoError(t, st.IncrementDaily(time.Now().UTC().Format("2006-01-02"), 5, 4, 1))
	srv := newTestServer(t, &Service{Store: st, Runner: &stubRunner{}})

	resp, err := http.Get(srv.URL + "/api/jobs?limit=2&page=2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	jobs := body["jobs"].([]any)
	assert.Len(t, jobs, 2)
	assert.EqualValues(t, 5, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 3, body["totalPages"])
	assert.EqualValues(t, 100, body["successRate"])

	todayStats := body["todayStats"].(map[string]any)
	assert.EqualValues(t, 5, todayStats["videos_generated"])
	assert.EqualValues(t, 4, todayStats["videos_uploaded"])

	analytics := body["analytics"].([]any)
	assert.Len(t, analytics, 1)
}

func TestListJobs_EmptyLedger(t *testing.T) {
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: &stubRunner{}})

	resp, err := http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.NotNil(t, body["jobs"], "jobs must be an empty array, not null")
	assert.Len(t, body["jobs"].([]any), 0)
	assert.EqualValues(t, 0, body["successRate"])
}

func TestDeleteJobs_SingleAndAll(t *testing.T) {
	st := newTestStore(t)
	seedJobs(t, st, 3)
	srv := newTestServer(t, &Service{Store: st, Runner: &stubRunner{}})

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/jobs?id=job-01", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	total, err := st.CountJobs()
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/jobs", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	total, err = st.CountJobs()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStats(t *testing.T) {
	st := newTestStore(t)
	seedJobs(t, st, 2)
	require.NoError(t, st.CreateJob(&types.Job{
		ID: "failed-1", Type: types.ContentTop5, Status: types.StatusProcessing, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, st.FailJob("failed-1", "boom", time.Now().UTC()))
	require.NoError(t, st.CompleteJob("job-01", "t", "d", "yt-1", "https://youtu.be/yt-1", time.Now().UTC()))
	srv := newTestServer(t, &Service{Store: st, Runner: &stubRunner{}})

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.EqualValues(t, 2, body["todayVideos"])
	assert.EqualValues(t, 2, body["totalVideos"])
	assert.EqualValues(t, 67, body["successRate"], "2 of 3 rounds to 67")
	assert.Equal(t, "https://youtu.be/yt-1", body["lastVideoUrl"])
	assert.NotNil(t, body["lastUpload"])
}

func TestStats_EmptyLedger(t *testing.T) {
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: &stubRunner{}})

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.EqualValues(t, 0, body["todayVideos"])
	assert.Nil(t, body["lastUpload"])
	assert.Nil(t, body["lastVideoUrl"])
}

func TestConfig_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	srv := newTestServer(t, &Service{Store: st, Runner: &stubRunner{}})

	payload := `{"videosPerDay": 3, "contentTypes": ["dance", "top5"], "uploadEnabled": false}`
	resp, err := http.Post(srv.URL+"/api/config", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/config")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 3, body["videosPerDay"])
	assert.Equal(t, []any{"dance", "top5"}, body["contentTypes"])
	assert.Equal(t, false, body["uploadEnabled"])

	// The pipeline reads the same keys back as typed settings.
	settings, err := st.LoadRunSettings()
	require.NoError(t, err)
	assert.Equal(t, 3, settings.VideosPerDay)
	assert.Equal(t, []types.ContentType{types.ContentDance, types.ContentTop5}, settings.ContentTypes)
	assert.False(t, settings.UploadEnabled)
}

func TestConfig_RejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t, &Service{Store: newTestStore(t), Runner: &stubRunner{}})

	resp, err := http.Post(srv.URL+"/api/config", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
