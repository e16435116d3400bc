package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/config"
	"github.com/affectlab/affectd/internal/crisis"
	"github.com/affectlab/affectd/internal/emotion"
	"github.com/affectlab/affectd/internal/fusion"
	"github.com/affectlab/affectd/internal/temporal"
	"github.com/affectlab/affectd/internal/wellness"
)

func newTestService(t *testing.T, mutate func(*config.Config)) *Service {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestIngestAndPatterns(t *testing.T) {
	svc := newTestService(t, nil)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		_, err := svc.Ingest("s1", emotion.ModalityText, emotion.Reading{
			Emotion:    emotion.Sadness,
			Score:      0.8,
			Confidence: 0.9,
			SourceText: "deadline stress at work again",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 6, svc.RecordCount("s1"))
	assert.Equal(t, []string{"s1"}, svc.Subjects())

	report := svc.Patterns("s1")
	assert.Equal(t, temporal.StatusOK, report.Status)
	assert.Equal(t, 6, report.TotalRecords)
	require.NotEmpty(t, report.Triggers)
	assert.Equal(t, "work", report.Triggers[0].Category)
}

func TestIngest_RejectsInvalidReading(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Ingest("s1", emotion.ModalityText, emotion.Reading{
		Emotion: emotion.Joy,
		Score:   1.4,
	})
	assert.ErrorIs(t, err, emotion.ErrInvalidRecord)
}

func TestAnalyzeMessage_CrisisScreeningOnDegradedInference(t *testing.T) {
	// No inference service is listening, so the reading degrades to
	// neutral while crisis screening still sees the raw text.
	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Inference.TextURL = "http://127.0.0.1:1"
		cfg.Inference.Timeout = 200 * time.Millisecond
	})

	got, err := svc.AnalyzeMessage(context.Background(), "s1", "I feel hopeless and want to give up")
	require.NoError(t, err)

	assert.Equal(t, emotion.Neutral, got.Record.Emotion)
	assert.Equal(t, "I feel hopeless and want to give up", got.Record.SourceText)
	assert.Equal(t, crisis.LevelModerate, got.Crisis.Level)
	assert.Equal(t, 1, svc.RecordCount("s1"))
}

func TestAnalyzeMessage_UsesInferenceReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"emotion":"joy","score":0.9,"confidence":0.8}`))
	}))
	defer server.Close()

	svc := newTestService(t, func(cfg *config.Config) {
		cfg.Inference.TextURL = server.URL
	})

	got, err := svc.AnalyzeMessage(context.Background(), "s1", "today went really well")
	require.NoError(t, err)

	assert.Equal(t, emotion.Joy, got.Record.Emotion)
	assert.InDelta(t, 0.9, got.Record.Score, 1e-9)
	assert.Equal(t, crisis.LevelNone, got.Crisis.Level)
}

func TestFuse(t *testing.T) {
	svc := newTestService(t, nil)

	result, err := svc.Fuse(fusion.Input{
		emotion.ModalityText: {Emotion: emotion.Joy, Score: 0.8},
	})
	require.NoError(t, err)
	assert.Equal(t, emotion.Joy, result.OverallEmotion)
	assert.InDelta(t, 0.8, result.OverallScore, 1e-9)
}

func TestScoreWellness_TrailDrivesTrend(t *testing.T) {
	svc := newTestService(t, nil)

	factors := wellness.Factors{
		MoodScore: 50, AnxietyLevel: 50, StressLevel: 50,
		SleepQuality: 50, ExerciseFrequency: 50, SocialInteraction: 50,
		MedicationAdherence: 50, TherapyAttendance: 50,
		MeditationPractice: 50, JournalingFrequency: 50,
		SubstanceUse: 50, SelfHarmIdeation: 50,
	}

	for i := 0; i < 2; i++ {
		got, err := svc.ScoreWellness("s1", factors)
		require.NoError(t, err)
		assert.Equal(t, wellness.TrendStable, got.Trend)
	}

	improved := factors
	improved.MoodScore = 95
	improved.AnxietyLevel = 5
	improved.StressLevel = 5

	second, err := svc.ScoreWellness("s1", improved)
	require.NoError(t, err)
	assert.Equal(t, wellness.TrendImproving, second.Trend)

	// A different subject has an empty trail.
	other, err := svc.ScoreWellness("s2", factors)
	require.NoError(t, err)
	assert.Equal(t, wellness.TrendStable, other.Trend)
}

func TestReload_SwapsWeights(t *testing.T) {
	svc := newTestService(t, nil)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Fusion.Weights = map[string]float64{"text": 0.8, "voice": 0.1, "face": 0.1}
	require.NoError(t, svc.Reload(cfg))

	result, err := svc.Fuse(fusion.Input{
		emotion.ModalityText:  {Emotion: emotion.Joy, Score: 0.5},
		emotion.ModalityVoice: {Emotion: emotion.Anger, Score: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, emotion.Joy, result.OverallEmotion)
}

func TestReload_RejectsBadConfigKeepsEngines(t *testing.T) {
	svc := newTestService(t, nil)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Fusion.Weights = map[string]float64{"text": 0.9, "voice": 0.9, "face": 0.9}
	assert.Error(t, svc.Reload(cfg))

	_, err = svc.Fuse(fusion.Input{emotion.ModalityText: {Emotion: emotion.Joy, Score: 0.5}})
	assert.NoError(t, err)
}
