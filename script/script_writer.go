package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"brainrot-pipeline/types"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "mistralai/mistral-7b-instruct:free"
	defaultReferer = "https://brainrot-automation.vercel.app"
	maxTokens      = 300
)

// Generator produces a narration script for one run.
type Generator interface {
	// Generate returns a non-empty script. It never fails: on any upstream
	// problem it falls back to a locally synthesized template.
	Generate(ctx context.Context, contentType types.ContentType, character, topic string) string
}

// Writer generates scripts via an OpenRouter chat completion, degrading to a
// canned template when the remote call fails.
type Writer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

var _ Generator = (*Writer)(nil)

// New creates a script Writer. An empty model selects the free default.
func New(baseURL, apiKey, model string) *Writer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Writer{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a script and falls back to a local template on
// any failure. The caller never sees an error from this adapter.
func (w *Writer) Generate(ctx context.Context, contentType types.ContentType, character, topic string) string {
	text, err := w.complete(ctx, prompt(contentType, character, topic))
	if err != nil {
		log.Printf("[script] ⚠️ remote generation failed: %v, using fallback script", err)
		return FallbackScript(contentType, character)
	}
	log.Printf("[script] ✅ Script generated (%d chars)", len(text))
	return text
}

func (w *Writer) complete(ctx context.Context, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model:     w.model,
		Messages:  []chatMessage{{Role: "user", Content: userPrompt}},
		MaxTokens: maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", defaultReferer)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter status %d", resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("parse openrouter response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openrouter returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}

func prompt(contentType types.ContentType, character, topic string) string {
	switch contentType {
	case types.ContentDance:
		return fmt.Sprintf("Write a 100-word energetic description of %s doing an epic dance battle. Include wild dance moves and brainrot energy. Make it hype and funny.", character)
	case types.ContentTop5:
		return fmt.Sprintf("Write a TOP 5 list about %q featuring brainrot characters like %s. Format: \"Number 5: [item]\" etc. Keep each item 1-2 sentences. Total 150 words.", topic, character)
	default:
		return fmt.Sprintf("Write a 150-word exciting story about %s from brainrot memes. Make it dramatic and funny. Include: a problem, adventure, and resolution. No hashtags.", character)
	}
}

// FallbackScript is the deterministic local template used when the remote
// model is unavailable.
func FallbackScript(contentType types.ContentType, character string) string {
	switch contentType {
	case types.ContentDance:
		return fmt.Sprintf("%s enters the dance floor and the crowd goes WILD! They bust out the griddy, then switch to the rizz dance. The skibidi moves are UNMATCHED. %s hits the woah and everyone loses their mind. Pure sigma energy radiating from every move. This is the most fire dance battle in brainrot history!", character, character)
	case types.ContentTop5:
		return fmt.Sprintf("Number 5: %s eating gyatt for breakfast. Number 4: %s going full sigma in Ohio. Number 3: %s defeating the skibidi toilet army. Number 2: %s achieving maximum rizz levels. Number 1: %s becoming the ultimate brainrot champion of the universe!", character, character, character, character, character)
	default:
		return fmt.Sprintf("%s was chilling in Ohio when suddenly everything went CRAZY! The skibidi toilet appeared and chaos erupted. %s had to use their ultimate brainrot powers to save the day. After an EPIC battle, %s emerged victorious! The whole sigma squad celebrated. This was truly the most Ohio moment ever recorded in human history. GG no re!", character, character, character)
	}
}
