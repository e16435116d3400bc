package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/emotion"
)

func newTestClient(textURL string) *Client {
	return NewClient(Endpoints{Text: textURL}, 2*time.Second, zap.NewNop())
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze", r.URL.Path)

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I am thrilled", req.Input)

		_ = json.NewEncoder(w).Encode(analyzeResponse{
			Emotion:    "joy",
			Score:      0.92,
			Confidence: 0.88,
		})
	}))
	defer server.Close()

	reading, err := newTestClient(server.URL).Analyze(context.Background(), emotion.ModalityText, "I am thrilled")
	require.NoError(t, err)

	assert.Equal(t, emotion.Joy, reading.Emotion)
	assert.InDelta(t, 0.92, reading.Score, 1e-9)
	assert.InDelta(t, 0.88, reading.Confidence, 1e-9)
}

func TestAnalyze_ServerErrorDegradesToNeutral(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	reading, err := newTestClient(server.URL).Analyze(context.Background(), emotion.ModalityText, "hello")
	require.NoError(t, err)
	assert.Equal(t, emotion.NeutralReading(), reading)
}

func TestAnalyze_MalformedPayloadDegradesToNeutral(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"unknown label", `{"emotion":"ecstatic","score":0.5,"confidence":0.5}`},
		{"score out of range", `{"emotion":"joy","score":1.5,"confidence":0.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			reading, err := newTestClient(server.URL).Analyze(context.Background(), emotion.ModalityText, "hello")
			require.NoError(t, err)
			assert.Equal(t, emotion.NeutralReading(), reading)
		})
	}
}

func TestAnalyze_UnreachableDegradesToNeutral(t *testing.T) {
	reading, err := newTestClient("http://127.0.0.1:1").Analyze(context.Background(), emotion.ModalityText, "hello")
	require.NoError(t, err)
	assert.Equal(t, emotion.NeutralReading(), reading)
}

func TestAnalyze_UnconfiguredModality(t *testing.T) {
	_, err := newTestClient("http://localhost:8002").Analyze(context.Background(), emotion.ModalityVoice, "hello")
	assert.ErrorIs(t, err, ErrUnconfiguredModality)
}

func TestHealth(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	assert.NoError(t, newTestClient(healthy.URL).Health(context.Background(), emotion.ModalityText))

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	assert.Error(t, newTestClient(unhealthy.URL).Health(context.Background(), emotion.ModalityText))
	assert.Error(t, newTestClient("http://127.0.0.1:1").Health(context.Background(), emotion.ModalityText))
}
