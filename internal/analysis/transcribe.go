package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-relations-go/internal/logger"
	"voice-relations-go/internal/types"
)

// Transcriber converts raw audio into time-stamped segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) ([]types.Segment, error)
}

// verboseTranscription is the whisper-style verbose_json response shape.
type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

type sttClient struct {
	url     string
	key     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewTranscriber builds the speech-to-text client from the environment
// (STT_URL, STT_API_KEY, STT_MODEL). USE_MOCK_TRANSCRIBE=true swaps in a
// fixed offline transcript.
func NewTranscriber() Transcriber {
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		return mockTranscriber{}
	}
	model := os.Getenv("STT_MODEL")
	if model == "" {
		model = "whisper-large-v3"
	}
	timeout := 60 * time.Second
	return &sttClient{
		url:     os.Getenv("STT_URL"),
		key:     os.Getenv("STT_API_KEY"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *sttClient) Transcribe(ctx context.Context, audio []byte, filename string) ([]types.Segment, error) {
	log := logger.New().WithField("component", "transcriber")
	if c.url == "" {
		return nil, fmt.Errorf("STT_URL not set")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write form: %w", err)
	}
	w.WriteField("model", c.model)
	w.WriteField("response_format", "verbose_json")
	w.WriteField("language", "en")
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}
	payload := body.Bytes()

	var parsed verboseTranscription
	var lastErr error

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, _ := http.NewRequestWithContext(reqCtx, "POST", c.url, bytes.NewReader(payload))
		req.Header.Set("Content-Type", w.FormDataContentType())
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("transcription request failed")
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("stt server error: %s", string(respBody))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			// Unsupported format, bad request: retrying cannot help.
			lastErr = fmt.Errorf("stt rejected audio: %s", string(respBody))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			lastErr = fmt.Errorf("decode transcription: %w", err)
			return lastErr
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("transcription failed: %w", lastErr)
	}

	segments := make([]types.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, types.Segment{Text: s.Text, Start: s.Start, End: s.End})
	}
	log.WithField("segments", len(segments)).Info("transcription completed")
	return segments, nil
}

type mockTranscriber struct{}

func (mockTranscriber) Transcribe(context.Context, []byte, string) ([]types.Segment, error) {
	return []types.Segment{
		{Text: "Hey, it's been a while!", Start: 0, End: 4},
		{Text: "Far too long. Let's meet next Monday at 3pm.", Start: 11, End: 16},
	}, nil
}
