// Package analysis wraps the external speech-to-text and language-model
// services behind the contracts the pipeline depends on. Both clients
// retry transient failures with exponential backoff and treat 4xx
// responses as permanent.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-relations-go/internal/logger"
)

// Analyzer produces the raw conversation analysis for a transcript. The
// returned map is untrusted model output; callers must sanitize and
// validate it before touching persisted state.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, accountName string) (map[string]any, error)
}

type llmClient struct {
	url     string
	key     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewAnalyzer builds the chat-completions client from the environment
// (LLM_GATEWAY_URL, LLM_API_KEY, LLM_MODEL). With USE_MOCK_LLM=true a
// deterministic offline analyzer is returned instead.
func NewAnalyzer() Analyzer {
	if os.Getenv("USE_MOCK_LLM") == "true" {
		return mockAnalyzer{}
	}
	timeout := 25 * time.Second
	return &llmClient{
		url:     os.Getenv("LLM_GATEWAY_URL"),
		key:     os.Getenv("LLM_API_KEY"),
		model:   os.Getenv("LLM_MODEL"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *llmClient) Analyze(ctx context.Context, transcript, accountName string) (map[string]any, error) {
	log := logger.New().WithField("component", "analyzer")
	if c.url == "" || c.key == "" {
		return nil, fmt.Errorf("llm gateway not configured")
	}

	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(transcript, accountName)},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	}
	data, _ := json.Marshal(reqBody)

	var out map[string]any
	var lastErr error

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, _ := http.NewRequestWithContext(reqCtx, "POST", c.url, bytes.NewReader(data))
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		log.WithField("http_status", resp.StatusCode).Debug("llm response received")

		if inner := contentFromChoices(body); inner != "" {
			if err := json.Unmarshal([]byte(inner), &out); err == nil {
				lastErr = nil
				return nil
			}
		}
		if fallback := ExtractJSON(string(body)); fallback != "" {
			if err := json.Unmarshal([]byte(fallback), &out); err == nil {
				lastErr = nil
				return nil
			}
		}

		lastErr = fmt.Errorf("no JSON found in llm output")
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 45 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("llm analysis failed: %w", lastErr)
	}
	return out, nil
}

// contentFromChoices reads an OpenAI-style choices[0].message.content and
// extracts the JSON object inside it.
func contentFromChoices(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	c0, _ := choices[0].(map[string]any)
	if c0 == nil {
		return ""
	}
	msg, _ := c0["message"].(map[string]any)
	if msg == nil {
		return ""
	}
	content, _ := msg["content"].(string)
	return ExtractJSON(content)
}

// ExtractJSON finds the first balanced JSON object in a string, stripping
// common markdown fences first. Returns "" when no object is found.
func ExtractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```yaml", "```text", "```", "`json", "`"} {
		s = strings.ReplaceAll(s, r, "")
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

// mockAnalyzer returns a small deterministic analysis for offline runs.
type mockAnalyzer struct{}

func (mockAnalyzer) Analyze(_ context.Context, _, accountName string) (map[string]any, error) {
	return map[string]any{
		"conversation_metadata": map[string]any{
			"title":             "Catch-up call",
			"summary":           map[string]any{"short": "Quick catch-up", "extended": "A short catch-up conversation."},
			"duration_minutes":  5.0,
			"tags":              []any{"personal"},
			"detected_speakers": 2.0,
		},
		"speakers": []any{
			map[string]any{"speaker_label": "SPEAKER 1", "name": accountName, "is_user": true},
			map[string]any{
				"speaker_label": "SPEAKER 2",
				"name":          "Maria",
				"is_user":       false,
				"profile": map[string]any{
					"relationship":  map[string]any{"type": "friend"},
					"communication": map[string]any{"frequency": "monthly"},
					"sentiment":     map[string]any{"closenessScore": 0.7, "tone": "warm"},
					"summary":       "An old friend.",
				},
			},
		},
		"reminders": []any{
			map[string]any{
				"title":          "Meet Maria",
				"from":           "SPEAKER 2",
				"due_date_text":  "next Monday at 3pm",
				"priority":       "normal",
				"category":       "meeting",
				"extracted_from": "let's meet next Monday at 3pm",
			},
		},
	}, nil
}
