// Package service wires the analytics engines, the history store, and
// the inference client into the operations the HTTP API and the
// scheduler call. It owns the engine snapshot that config hot reloads
// swap out.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/config"
	"github.com/affectlab/affectd/internal/crisis"
	"github.com/affectlab/affectd/internal/emotion"
	"github.com/affectlab/affectd/internal/fusion"
	"github.com/affectlab/affectd/internal/history"
	"github.com/affectlab/affectd/internal/inference"
	"github.com/affectlab/affectd/internal/temporal"
	"github.com/affectlab/affectd/internal/wellness"
)

// maxWellnessHistory bounds the per-subject trail of past overall
// wellness scores kept for trend computation.
const maxWellnessHistory = 50

// engines is the immutable bundle a single Reload produces. Handlers
// grab the whole bundle under one read lock so a request never mixes
// tables from two config generations.
type engines struct {
	fusion     *fusion.Engine
	scorer     *wellness.Scorer
	detector   *crisis.Detector
	analyzer   *temporal.Analyzer
	inference  *inference.Client
	windowDays int
}

// Service is the affectd application core behind the transport layer.
type Service struct {
	logger *zap.Logger
	store  *history.Store

	mu      sync.RWMutex
	engines engines

	wellnessMu      sync.Mutex
	wellnessHistory map[string][]float64
}

// MessageAnalysis is the combined outcome of analyzing one text message:
// the normalized record that entered the subject's history and the
// crisis screening of the raw text.
type MessageAnalysis struct {
	Record emotion.Record  `json:"record"`
	Crisis crisis.Response `json:"crisis"`
}

// New builds a service from a validated config.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	s := &Service{
		logger:          logger,
		store:           history.NewStore(time.Duration(cfg.History.RetentionDays) * 24 * time.Hour),
		wellnessHistory: make(map[string][]float64),
	}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps in engines built from a freshly validated config. The
// history store and the wellness score trails survive reloads.
func (s *Service) Reload(cfg *config.Config) error {
	fusionEngine, err := fusion.NewEngine(cfg.FusionWeights())
	if err != nil {
		return err
	}
	scorer, err := wellness.NewScorer(cfg.WellnessWeights())
	if err != nil {
		return err
	}
	detector, err := crisis.NewDetector(cfg.Crisis.Indicators)
	if err != nil {
		return err
	}

	next := engines{
		fusion:   fusionEngine,
		scorer:   scorer,
		detector: detector,
		analyzer: temporal.NewAnalyzer(nil),
		inference: inference.NewClient(inference.Endpoints{
			Text:  cfg.Inference.TextURL,
			Voice: cfg.Inference.VoiceURL,
			Face:  cfg.Inference.FaceURL,
		}, cfg.Inference.Timeout, s.logger),
		windowDays: cfg.History.WindowDays,
	}

	s.mu.Lock()
	s.engines = next
	s.mu.Unlock()
	return nil
}

func (s *Service) current() engines {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engines
}

// Ingest normalizes a raw reading into a record and appends it to the
// subject's history.
func (s *Service) Ingest(subjectID string, modality emotion.Modality, reading emotion.Reading) (emotion.Record, error) {
	rec, err := emotion.Normalize(subjectID, modality, reading)
	if err != nil {
		return emotion.Record{}, err
	}
	s.store.Append(rec)
	return rec, nil
}

// AnalyzeMessage runs a subject's text message through text inference,
// records the normalized result, and screens the raw text for crisis
// indicators. An inference failure has already degraded to the neutral
// reading by the time this sees it; crisis screening always runs on the
// original text.
func (s *Service) AnalyzeMessage(ctx context.Context, subjectID, message string) (MessageAnalysis, error) {
	eng := s.current()

	reading, err := eng.inference.Analyze(ctx, emotion.ModalityText, message)
	if err != nil {
		return MessageAnalysis{}, err
	}
	reading.SourceText = message

	rec, err := s.Ingest(subjectID, emotion.ModalityText, reading)
	if err != nil {
		return MessageAnalysis{}, err
	}

	resp := eng.detector.Analyze(message, subjectID)
	if resp.Level != crisis.LevelNone {
		s.logger.Warn("crisis indicators detected",
			zap.String("subject_id", subjectID),
			zap.String("level", string(resp.Level)),
			zap.Int("indicators", len(resp.DetectedIndicators)))
	}

	return MessageAnalysis{Record: rec, Crisis: resp}, nil
}

// Fuse combines simultaneous modality readings into one judgment.
func (s *Service) Fuse(input fusion.Input) (fusion.Result, error) {
	return s.current().fusion.Fuse(input)
}

// Patterns analyzes the subject's history inside the configured window.
func (s *Service) Patterns(subjectID string) temporal.PatternReport {
	eng := s.current()
	window := time.Duration(eng.windowDays) * 24 * time.Hour
	return eng.analyzer.AnalyzePatterns(s.store.Snapshot(subjectID, window))
}

// ScoreWellness computes a subject's wellness score against their past
// overall scores and appends the new score to the trail.
func (s *Service) ScoreWellness(subjectID string, factors wellness.Factors) (wellness.Score, error) {
	s.wellnessMu.Lock()
	defer s.wellnessMu.Unlock()

	trail := s.wellnessHistory[subjectID]
	score, err := s.current().scorer.Score(factors, trail)
	if err != nil {
		return wellness.Score{}, err
	}

	trail = append(trail, score.OverallScore)
	if len(trail) > maxWellnessHistory {
		trail = trail[len(trail)-maxWellnessHistory:]
	}
	s.wellnessHistory[subjectID] = trail
	return score, nil
}

// Subjects lists subjects with recorded history.
func (s *Service) Subjects() []string {
	return s.store.Subjects()
}

// RecordCount reports how many records a subject has in the store.
func (s *Service) RecordCount(subjectID string) int {
	return s.store.Count(subjectID)
}

// InferenceHealth probes every configured modality service and returns
// the per-modality status.
func (s *Service) InferenceHealth(ctx context.Context) map[emotion.Modality]string {
	eng := s.current()
	out := make(map[emotion.Modality]string, len(emotion.Modalities))
	for _, modality := range emotion.Modalities {
		if err := eng.inference.Health(ctx, modality); err != nil {
			out[modality] = "unreachable"
			continue
		}
		out[modality] = "ok"
	}
	return out
}
