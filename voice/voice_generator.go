package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSynthesisFailed is returned when both the primary and the fallback
// speech provider fail. There is no further degradation: a video without
// narration is not worth assembling.
var ErrSynthesisFailed = errors.New("voice synthesis failed on primary and fallback providers")

const (
	defaultElevenBaseURL = "https://api.elevenlabs.io"
	defaultStreamBaseURL = "https://api.streamelements.com"

	// Character ceilings keep each provider within its free-tier quota.
	primaryCharLimit  = 2500
	fallbackCharLimit = 500

	fallbackVoice = "Brian"
)

// elevenVoices maps friendly selector names to ElevenLabs voice IDs.
var elevenVoices = map[string]string{
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Domi":   "AZnzlk1XvdvUeBnXmlld",
	"Bella":  "EXAVITQu4vr4xnSDxMaL",
	"Antoni": "ErXwobaYiN019PkySvjV",
	"Elli":   "MF3mGyEYCl7XYWbV9V6O",
}

const defaultVoice = "Rachel"

// Synthesizer turns narration text into an audio track.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceName string) ([]byte, error)
}

// Generator synthesizes speech via ElevenLabs, falling back to the keyless
// StreamElements endpoint on any primary failure.
type Generator struct {
	httpClient    *http.Client
	elevenBaseURL string
	streamBaseURL string
	apiKey        string
}

var _ Synthesizer = (*Generator)(nil)

// New creates a voice Generator. Empty base URLs select the live endpoints.
func New(elevenBaseURL, streamBaseURL, apiKey string) *Generator {
	if elevenBaseURL == "" {
		elevenBaseURL = defaultElevenBaseURL
	}
	if streamBaseURL == "" {
		streamBaseURL = defaultStreamBaseURL
	}
	return &Generator{
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		elevenBaseURL: strings.TrimRight(elevenBaseURL, "/"),
		streamBaseURL: strings.TrimRight(streamBaseURL, "/"),
		apiKey:        apiKey,
	}
}

type elevenRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize produces narration audio. An unmapped voiceName selects the
// default voice.
func (g *Generator) Synthesize(ctx context.Context, text, voiceName string) ([]byte, error) {
	audio, err := g.elevenLabs(ctx, text, voiceName)
	if err == nil {
		log.Printf("[voice] ✅ ElevenLabs audio ready (%d bytes)", len(audio))
		return audio, nil
	}
	log.Printf("[voice] ⚠️ ElevenLabs failed: %v, trying StreamElements fallback", err)

	audio, fbErr := g.streamElements(ctx, text)
	if fbErr != nil {
		log.Printf("[voice] ⚠️ fallback failed too: %v", fbErr)
		return nil, fmt.Errorf("%w: primary: %v, fallback: %v", ErrSynthesisFailed, err, fbErr)
	}
	log.Printf("[voice] ✅ StreamElements fallback audio ready (%d bytes)", len(audio))
	return audio, nil
}

func (g *Generator) elevenLabs(ctx context.Context, text, voiceName string) ([]byte, error) {
	voiceID, ok := elevenVoices[voiceName]
	if !ok {
		voiceID = elevenVoices[defaultVoice]
	}

	reqBody := elevenRequest{
		Text:    truncate(text, primaryCharLimit),
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.elevenBaseURL+"/v1/text-to-speech/"+voiceID, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs status %d", resp.StatusCode)
	}
	return readAudio(resp.Body)
}

func (g *Generator) streamElements(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("voice", fallbackVoice)
	q.Set("text", truncate(text, fallbackCharLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.streamBaseURL+"/kappa/v2/speech?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("streamelements request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("streamelements status %d", resp.StatusCode)
	}
	return readAudio(resp.Body)
}

func readAudio(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("provider returned empty audio")
	}
	return data, nil
}

// truncate caps s at n characters without splitting a multi-byte rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
