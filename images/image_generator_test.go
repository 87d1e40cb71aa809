package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelServer fakes the inference API; behavior maps a model name to a
// sequence of per-call status codes (last one repeats).
type modelServer struct {
	mu       sync.Mutex
	calls    map[string]int
	behavior map[string][]int
}

func newModelServer(behavior map[string][]int) (*modelServer, *httptest.Server) {
	ms := &modelServer{calls: make(map[string]int), behavior: behavior}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		model := strings.TrimPrefix(r.URL.Path, "/")
		ms.mu.Lock()
		n := ms.calls[model]
		ms.calls[model]++
		ms.mu.Unlock()

		seq := ms.behavior[model]
		if len(seq) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if n >= len(seq) {
			n = len(seq) - 1
		}
		if seq[n] == http.StatusOK {
			_, _ = w.Write([]byte("image-bytes-" + model))
			return
		}
		w.WriteHeader(seq[n])
	}))
	return ms, srv
}

func (ms *modelServer) callCount(model string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.calls[model]
}

func newGenerator(baseURL string, models []string) *HuggingFace {
	g := New(baseURL, "key", models)
	g.WarmupWait = time.Millisecond
	return g
}

func TestGenerate_FirstCandidateSuccess(t *testing.T) {
	ms, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusOK},
		"model-b": {http.StatusOK},
	})
	defer srv.Close()

	g := newGenerator(srv.URL, []string{"model-a", "model-b"})
	data, err := g.Generate(context.Background(), "a prompt")

	require.NoError(t, err)
	assert.Equal(t, "image-bytes-model-a", string(data))
	assert.Equal(t, 0, ms.callCount("model-b"), "second candidate must not be consulted")
}

func TestGenerate_WarmupRetrySameCandidate(t *testing.T) {
	// Candidate 1: 503 then 200. The retry must succeed without touching
	// candidate 2.
	ms, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusServiceUnavailable, http.StatusOK},
		"model-b": {http.StatusOK},
	})
	defer srv.Close()

	g := newGenerator(srv.URL, []string{"model-a", "model-b"})
	data, err := g.Generate(context.Background(), "a prompt")

	require.NoError(t, err)
	assert.Equal(t, "image-bytes-model-a", string(data))
	assert.Equal(t, 2, ms.callCount("model-a"))
	assert.Equal(t, 0, ms.callCount("model-b"))
}

func TestGenerate_WarmupRetryOnlyOncePerCandidate(t *testing.T) {
	// Candidate 1 never finishes warming up; the chain must move on and use
	// candidate 2 after exactly two attempts on candidate 1.
	ms, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		"model-b": {http.StatusOK},
	})
	defer srv.Close()

	g := newGenerator(srv.URL, []string{"model-a", "model-b"})
	data, err := g.Generate(context.Background(), "a prompt")

	require.NoError(t, err)
	assert.Equal(t, "image-bytes-model-b", string(data))
	assert.Equal(t, 2, ms.callCount("model-a"))
}

func TestGenerate_HardErrorAdvancesWithoutRetry(t *testing.T) {
	ms, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusBadRequest},
		"model-b": {http.StatusOK},
	})
	defer srv.Close()

	g := newGenerator(srv.URL, []string{"model-a", "model-b"})
	data, err := g.Generate(context.Background(), "a prompt")

	require.NoError(t, err)
	assert.Equal(t, "image-bytes-model-b", string(data))
	assert.Equal(t, 1, ms.callCount("model-a"), "non-503 failures get no retry")
}

func TestGenerate_AllCandidatesExhausted(t *testing.T) {
	_, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusInternalServerError},
		"model-b": {http.StatusInternalServerError},
	})
	defer srv.Close()

	g := newGenerator(srv.URL, []string{"model-a", "model-b"})
	_, err := g.Generate(context.Background(), "a prompt")

	assert.True(t, errors.Is(err, ErrAllProvidersExhausted), "got %v", err)
}

func TestGenerate_ContextCancelledDuringWarmup(t *testing.T) {
	_, srv := newModelServer(map[string][]int{
		"model-a": {http.StatusServiceUnavailable},
	})
	defer srv.Close()

	g := New(srv.URL, "key", []string{"model-a"})
	g.WarmupWait = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.Generate(ctx, "a prompt")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
