// Package openai provides an LLM service adapter using an OpenAI-compatible
// chat completions API, including SSE streaming.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s). Streaming requests
	// ignore the timeout and rely on ctx cancellation instead.
	Timeout time.Duration
}

// LLMService provides LLM operations using an OpenAI-compatible API.
type LLMService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
	promptStore  driven.PromptStore
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// chatCompletionChunk is one SSE event payload of a streamed completion.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
	}, nil
}

// Generate produces a complete text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	resp, err := s.client.Do(s.mustRequest(ctx, prompt, opts, false))
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream produces a completion as an incremental SSE text stream.
func (s *LLMService) GenerateStream(ctx context.Context, prompt string, opts driven.GenerateOptions) (driven.TextStream, error) {
	req := s.mustRequest(ctx, prompt, opts, true)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	return &sseStream{
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// mustRequest builds the chat completion request. Only marshal or URL
// failures can occur, and neither can for the fixed endpoint and
// string-typed payload, so errors panic rather than propagate.
func (s *LLMService) mustRequest(ctx context.Context, prompt string, opts driven.GenerateOptions, stream bool) *http.Request {
	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := chatCompletionRequest{
		Model: model,
		Messages: []chatCompletionMsg{
			{Role: "user", Content: prompt},
		},
		Stream: stream,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		panic(fmt.Sprintf("openai: marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		panic(fmt.Sprintf("openai: create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req
}

// sseStream adapts a text/event-stream response body to a TextStream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Recv returns the next non-empty content delta, or io.EOF once the server
// signals completion.
func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	s.done = true
	return "", io.EOF
}

// Close releases the underlying response body.
func (s *sseStream) Close() error {
	return s.body.Close()
}

// defaultEnrichPrompt is the fallback when no PromptStore is configured.
const defaultEnrichPrompt = `Summarise the following text in at most {{max_chars}} characters and
propose 2-3 short topic tags. Respond with ONLY a JSON object of the form
{"summary": "...", "tags": ["...", "..."]}.

Text:
{{chunk_text}}`

// enrichResult is the JSON object the enrichment prompt asks the model for.
type enrichResult struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// Enrich produces a bounded summary and topic tags for a chunk. The model is
// asked for a JSON object; anything surrounding the object (markdown fences,
// prose) is stripped by cutting from the first "{" to the last "}".
func (s *LLMService) Enrich(ctx context.Context, chunkText string, maxChars int) (domain.Enrichment, error) {
	template := s.loadPrompt(driven.PromptEnrichChunk, defaultEnrichPrompt)
	prompt := strings.NewReplacer(
		"{{max_chars}}", fmt.Sprintf("%d", maxChars),
		"{{chunk_text}}", chunkText,
	).Replace(template)

	raw, err := s.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   maxChars/2 + 100,
		Temperature: 0.3,
	})
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("enrich chunk: %w", err)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.Enrichment{}, fmt.Errorf("enrich chunk: no JSON object in model output")
	}

	var parsed enrichResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return domain.Enrichment{}, fmt.Errorf("enrich chunk: decode model output: %w", err)
	}

	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		return domain.Enrichment{}, fmt.Errorf("enrich chunk: empty summary in model output")
	}
	if len(summary) > maxChars {
		summary = summary[:maxChars]
	}

	if len(parsed.Tags) < 2 {
		return domain.Enrichment{}, fmt.Errorf("enrich chunk: expected 2-3 tags, got %d", len(parsed.Tags))
	}
	if len(parsed.Tags) > 3 {
		parsed.Tags = parsed.Tags[:3]
	}
	tags := make([]string, 0, len(parsed.Tags))
	for _, t := range parsed.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return domain.Enrichment{Summary: summary, Tags: tags}, nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *LLMService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *LLMService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}
