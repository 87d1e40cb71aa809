package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrAllProvidersExhausted is returned when every candidate model failed to
// produce an image for a prompt.
var ErrAllProvidersExhausted = errors.New("all image generation models failed")

const (
	defaultBaseURL = "https://api-inference.huggingface.co/models"

	// YouTube Shorts portrait geometry.
	imageWidth  = 1080
	imageHeight = 1920

	inferenceSteps = 20

	defaultWarmupWait = 10 * time.Second
)

// DefaultModels is the ordered candidate chain, tried first to last.
var DefaultModels = []string{
	"stabilityai/stable-diffusion-xl-base-1.0",
	"runwayml/stable-diffusion-v1-5",
	"CompVis/stable-diffusion-v1-4",
}

// Generator produces one still frame per prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// HuggingFace generates images via the HF inference API, walking an ordered
// list of candidate models until one answers.
type HuggingFace struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     []string

	// WarmupWait is how long to wait before retrying a model that reported it
	// is still loading. Overridable in tests.
	WarmupWait time.Duration
}

var _ Generator = (*HuggingFace)(nil)

// New creates a HuggingFace generator. Nil models selects DefaultModels.
func New(baseURL, apiKey string, models []string) *HuggingFace {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	return &HuggingFace{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		models:     models,
		WarmupWait: defaultWarmupWait,
	}
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Width             int `json:"width"`
	Height            int `json:"height"`
	NumInferenceSteps int `json:"num_inference_steps"`
}

// Generate walks the candidate chain in order and returns the first image
// produced. A model that reports it is warming up (HTTP 503) gets one retry
// after WarmupWait; any other failure advances to the next candidate.
func (g *HuggingFace) Generate(ctx context.Context, prompt string) ([]byte, error) {
	for _, model := range g.models {
		data, warming, err := g.attempt(ctx, model, prompt)
		if err == nil {
			return data, nil
		}
		if warming {
			log.Printf("[images] model %s is loading, waiting %s before retry", model, g.WarmupWait)
			select {
			case <-time.After(g.WarmupWait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			data, _, err = g.attempt(ctx, model, prompt)
			if err == nil {
				return data, nil
			}
		}
		log.Printf("[images] ⚠️ model %s failed: %v", model, err)
	}
	return nil, ErrAllProvidersExhausted
}

// attempt issues one inference request. warming is true when the model asked
// to be retried after its warm-up period.
func (g *HuggingFace) attempt(ctx context.Context, model, prompt string) (data []byte, warming bool, err error) {
	reqBody := inferenceRequest{
		Inputs: prompt,
		Parameters: inferenceParameters{
			Width:             imageWidth,
			Height:            imageHeight,
			NumInferenceSteps: inferenceSteps,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/"+model, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("read image body: %w", err)
		}
		if len(data) == 0 {
			return nil, false, fmt.Errorf("model %s returned empty body", model)
		}
		return data, false, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, true, fmt.Errorf("model %s warming up (status 503)", model)
	default:
		return nil, false, fmt.Errorf("model %s status %d", model, resp.StatusCode)
	}
}
