package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/saifjishan/chatmeme/internal/cache"
	"github.com/saifjishan/chatmeme/internal/domain"
	"github.com/saifjishan/chatmeme/internal/logger"
	"github.com/saifjishan/chatmeme/internal/prompts"
)

// AnalyzerService decomposes a meme prompt into subjects, search queries
// and captions via an OpenAI-compatible chat-completions endpoint.
//
// Failure contract: Analyze never returns a nil result. Any service or
// parse failure yields the fixed fallback result (Fallback=true) with a
// nil error; malformed model output must never propagate an empty query
// into image search.
type AnalyzerService struct {
	client   *resty.Client
	model    string
	endpoint string
	cache    cache.Store
	sem      chan struct{}
}

// AnalyzerConfig holds configuration for the analyzer service.
type AnalyzerConfig struct {
	Model   string
	APIKey  string
	BaseURL string

	// Cache stores analysis results keyed by normalized prompt; nil
	// disables caching.
	Cache cache.Store

	// Workers bounds the pool behind AnalyzeAsync. Zero means 5.
	Workers int
}

// NewAnalyzerService creates a new analyzer service.
func NewAnalyzerService(cfg *AnalyzerConfig) *AnalyzerService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	return &AnalyzerService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		cache:    cfg.Cache,
		sem:      make(chan struct{}, workers),
	}
}

// llmRequest represents the request to the LLM API.
type llmRequest struct {
	Model       string       `json:"model"`
	Messages    []llmMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float32      `json:"temperature"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze turns a free-text prompt into a reconciled AnalysisResult.
func (s *AnalyzerService) Analyze(ctx context.Context, prompt string) (*domain.AnalysisResult, error) {
	if cached := s.fromCache(ctx, prompt); cached != nil {
		return cached, nil
	}

	req := llmRequest{
		Model: s.model,
		Messages: []llmMessage{
			{Role: "system", Content: prompts.AnalyzerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	}

	var resp llmResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		logger.CtxWarn(ctx, "Analyzer call failed, using fallback: %v", err)
		return domain.FallbackAnalysis(prompt), nil
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			msg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		logger.CtxWarn(ctx, "Analyzer returned error, using fallback: %s", msg)
		return domain.FallbackAnalysis(prompt), nil
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		logger.CtxWarn(ctx, "Analyzer returned no choices, using fallback")
		return domain.FallbackAnalysis(prompt), nil
	}

	result, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		logger.CtxWarn(ctx, "Invalid analyzer response format, using fallback: %v", err)
		return domain.FallbackAnalysis(prompt), nil
	}

	s.toCache(ctx, prompt, result)

	return result, nil
}

// AnalysisOutcome is the result of an asynchronous analysis.
type AnalysisOutcome struct {
	Result *domain.AnalysisResult
	Err    error
}

// AnalyzeAsync runs Analyze on a bounded worker pool so callers can avoid
// blocking while the call is outstanding. Ordering between pipeline
// stages is unchanged; the caller still awaits the outcome.
func (s *AnalyzerService) AnalyzeAsync(ctx context.Context, prompt string) <-chan AnalysisOutcome {
	out := make(chan AnalysisOutcome, 1)
	go func() {
		defer close(out)
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-ctx.Done():
			out <- AnalysisOutcome{Result: domain.FallbackAnalysis(prompt), Err: ctx.Err()}
			return
		}
		result, err := s.Analyze(ctx, prompt)
		out <- AnalysisOutcome{Result: result, Err: err}
	}()
	return out
}

// parseAnalysis extracts the JSON object from the model reply and applies
// the schema gate: all three required lists present and non-empty, then
// lengths reconciled to the shortest.
func parseAnalysis(content string) (*domain.AnalysisResult, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	// Decode into a raw map first so an absent key is distinguishable
	// from an empty list.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	for _, key := range []string{"subjects", "search_queries", "captions"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("missing required field %q", key)
		}
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if !result.Complete() {
		return nil, fmt.Errorf("empty or invalid lists in response")
	}

	result.Reconcile()
	return &result, nil
}

// extractJSON finds the first brace-matched JSON object in content,
// tolerating markdown fences and prose around it.
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}

	braceCount := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("incomplete JSON in response")
}

func (s *AnalyzerService) fromCache(ctx context.Context, prompt string) *domain.AnalysisResult {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, analysisKey(prompt))
	if err != nil {
		return nil
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *AnalyzerService) toCache(ctx context.Context, prompt string, result *domain.AnalysisResult) {
	if s.cache == nil || result.Fallback {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Put(ctx, analysisKey(prompt), data); err != nil {
		logger.CtxDebug(ctx, "Failed to cache analysis: %v", err)
	}
}

func analysisKey(prompt string) string {
	return "analysis:" + cache.Key(strings.ToLower(strings.TrimSpace(prompt)))
}
