package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"brainrot-pipeline/store"
	"brainrot-pipeline/types"
)

// HeaderCronTrigger marks a trusted scheduler invocation. The platform in
// front of the service is expected to strip it from external traffic.
const HeaderCronTrigger = "X-Cron-Trigger"

// Runner triggers one pipeline run.
type Runner interface {
	Run(ctx context.Context) (types.RunResult, error)
}

// Service exposes the pipeline trigger and the dashboard read API.
type Service struct {
	Store      store.Store
	Runner     Runner
	CronSecret string
}

// NewHTTPServer builds the http.Server with all routes.
func NewHTTPServer(svc *Service, addr string) *http.Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cron/generate", svc.handleGenerate).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/jobs", svc.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs", svc.handleDeleteJobs).Methods(http.MethodDelete)
	api.HandleFunc("/stats", svc.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/config", svc.handleGetConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", svc.handleSetConfig).Methods(http.MethodPost)

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a run blocks for the full pipeline
		IdleTimeout:  60 * time.Second,
	}
}

// authorized validates the trigger call: a matching bearer secret, or the
// trusted scheduler marker header. With no secret configured every call is
// accepted.
func (svc *Service) authorized(r *http.Request) bool {
	if svc.CronSecret == "" {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+svc.CronSecret {
		return true
	}
	return r.Header.Get(HeaderCronTrigger) == "1"
}

func (svc *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !svc.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	result, err := svc.Runner.Run(r.Context())
	if err != nil {
		log.Printf("[server] run error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch result.Outcome {
	case types.OutcomeSkipped:
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    result.Message,
			"todayCount": result.TodayCount,
			"limit":      result.Limit,
		})
	case types.OutcomeCompleted:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"jobId":      result.JobID,
			"title":      result.Title,
			"youtubeUrl": result.YouTubeURL,
			"character":  result.Character,
			"type":       result.Type,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": result.Error,
			"jobId": result.JobID,
		})
	}
}

func (svc *Service) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	jobs, err := svc.Store.ListJobs(limit, (page-1)*limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	total, err := svc.Store.CountJobs()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	todayStats, err := svc.Store.GetDaily(today)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	analytics, err := svc.Store.RecentDaily(7)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	successRate, err := svc.successRate()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if jobs == nil {
		jobs = []types.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":        jobs,
		"total":       total,
		"page":        page,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"todayStats":  todayStats,
		"successRate": successRate,
		"analytics":   analytics,
	})
}

func (svc *Service) handleDeleteJobs(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	var err error
	if id != "" {
		err = svc.Store.DeleteJob(id)
	} else {
		err = svc.Store.DeleteAllJobs()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (svc *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	today := time.Now().UTC().Format("2006-01-02")

	todayCompleted, err := svc.Store.CountCompletedOn(today)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	totalCompleted, err := svc.Store.CountJobsByStatus(types.StatusCompleted)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	successRate, err := svc.successRate()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	latest, err := svc.Store.LatestCompletedJob()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := map[string]any{
		"todayVideos":  todayCompleted,
		"totalVideos":  totalCompleted,
		"successRate":  successRate,
		"lastUpload":   nil,
		"lastVideoUrl": nil,
	}
	if latest != nil {
		resp["lastUpload"] = latest.CompletedAt
		if latest.YouTubeURL != "" {
			resp["lastVideoUrl"] = latest.YouTubeURL
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (svc *Service) successRate() (int, error) {
	totalCompleted, err := svc.Store.CountJobsByStatus(types.StatusCompleted)
	if err != nil {
		return 0, err
	}
	total, err := svc.Store.CountJobs()
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return int(math.Round(float64(totalCompleted) / float64(total) * 100)), nil
}

func (svc *Service) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	kv, err := svc.Store.Settings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	// Values are stored as JSON; decode so clients get typed values back.
	out := make(map[string]any, len(kv))
	for k, v := range kv {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			decoded = v
		}
		out[k] = decoded
	}
	writeJSON(w, http.StatusOK, out)
}

func (svc *Service) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	var updates map[string]json.RawMessage
	if err := json.Unmarshal(body, &updates); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	for key, value := range updates {
		if err := svc.Store.SetSetting(key, string(value)); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
