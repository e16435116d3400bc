// Package inference calls the external per-modality emotion inference
// services. A failed or malformed inference response degrades to the
// neutral reading rather than failing the caller's request.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/emotion"
)

// maxResponseSize caps how much of an inference response body is read.
const maxResponseSize = 1024 * 1024 // 1MB

// ErrUnconfiguredModality is returned when no endpoint is configured for
// the requested modality.
var ErrUnconfiguredModality = errors.New("no inference endpoint for modality")

// Endpoints maps each modality to its inference service base URL. An
// empty URL disables the modality.
type Endpoints struct {
	Text  string
	Voice string
	Face  string
}

// Client queries the modality inference services over HTTP.
type Client struct {
	endpoints Endpoints
	client    *http.Client
	logger    *zap.Logger
}

// NewClient creates an inference client with the given endpoints and
// per-request timeout.
func NewClient(endpoints Endpoints, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// analyzeRequest is the wire request shared by all modality services.
type analyzeRequest struct {
	Input string `json:"input"`
}

// analyzeResponse is the wire response shared by all modality services.
type analyzeResponse struct {
	Emotion    string  `json:"emotion"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Analyze sends the input to the modality's inference service and
// returns the resulting reading. Transport errors, non-200 statuses,
// and out-of-range payloads all degrade to the neutral reading with a
// warning log; only an unconfigured modality is reported as an error.
func (c *Client) Analyze(ctx context.Context, modality emotion.Modality, input string) (emotion.Reading, error) {
	base, err := c.endpointFor(modality)
	if err != nil {
		return emotion.Reading{}, err
	}

	reading, err := c.post(ctx, base+"/analyze", input)
	if err != nil {
		c.logger.Warn("inference call failed, substituting neutral reading",
			zap.String("modality", string(modality)),
			zap.Error(err))
		return emotion.NeutralReading(), nil
	}
	return reading, nil
}

// Health probes the modality's inference service. It reports reachable
// when the service answers 200 on /health within the client timeout.
func (c *Client) Health(ctx context.Context, modality emotion.Modality) error {
	base, err := c.endpointFor(modality)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpointFor(modality emotion.Modality) (string, error) {
	var base string
	switch modality {
	case emotion.ModalityText:
		base = c.endpoints.Text
	case emotion.ModalityVoice:
		base = c.endpoints.Voice
	case emotion.ModalityFace:
		base = c.endpoints.Face
	}
	if base == "" {
		return "", fmt.Errorf("%w: %s", ErrUnconfiguredModality, modality)
	}
	return base, nil
}

func (c *Client) post(ctx context.Context, url, input string) (emotion.Reading, error) {
	body, err := json.Marshal(analyzeRequest{Input: input})
	if err != nil {
		return emotion.Reading{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return emotion.Reading{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return emotion.Reading{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return emotion.Reading{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return emotion.Reading{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return emotion.Reading{}, fmt.Errorf("failed to decode response: %w", err)
	}

	reading := emotion.Reading{
		Emotion:    emotion.Label(parsed.Emotion),
		Score:      parsed.Score,
		Confidence: parsed.Confidence,
	}
	if !reading.Emotion.Valid() {
		return emotion.Reading{}, fmt.Errorf("unknown emotion label %q", parsed.Emotion)
	}
	if reading.Score < 0 || reading.Score > 1 || reading.Confidence < 0 || reading.Confidence > 1 {
		return emotion.Reading{}, fmt.Errorf("score or confidence outside [0,1]")
	}
	return reading, nil
}
