// Package fusion combines simultaneous per-modality emotion readings for
// one instant into a single affect judgment using fixed modality weights.
package fusion

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/affectlab/affectd/internal/emotion"
)

// ErrInvalidInput is returned when a caller passes an out-of-range score
// or an unknown modality or label. In-range input never fails.
var ErrInvalidInput = errors.New("invalid fusion input")

// ErrInvalidWeights is returned for a weight table that does not cover
// the three modalities with non-negative weights summing to 1.0.
var ErrInvalidWeights = errors.New("invalid fusion weights")

// Weights assigns a fusion weight to each modality.
type Weights map[emotion.Modality]float64

// DefaultWeights returns the standard modality weights.
func DefaultWeights() Weights {
	return Weights{
		emotion.ModalityText:  0.4,
		emotion.ModalityVoice: 0.3,
		emotion.ModalityFace:  0.3,
	}
}

// Validate checks that every modality has a non-negative weight and the
// weights sum to 1.0.
func (w Weights) Validate() error {
	sum := 0.0
	for _, m := range emotion.Modalities {
		weight, ok := w[m]
		if !ok {
			return fmt.Errorf("%w: missing weight for modality %q", ErrInvalidWeights, m)
		}
		if weight < 0 {
			return fmt.Errorf("%w: negative weight %v for modality %q", ErrInvalidWeights, weight, m)
		}
		sum += weight
	}
	if len(w) != len(emotion.Modalities) {
		return fmt.Errorf("%w: unknown modality in weight table", ErrInvalidWeights)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// Reading is one modality's contribution to a fusion instant.
type Reading struct {
	Emotion emotion.Label `json:"emotion"`
	Score   float64       `json:"score"`
}

// Input maps each present modality to its reading for a single instant.
// Absent modalities are simply omitted.
type Input map[emotion.Modality]Reading

// Result is the fused affect judgment for one instant. Results are
// transient; nothing in the core persists them.
type Result struct {
	FusionID       string                       `json:"fusion_id"`
	OverallEmotion emotion.Label                `json:"overall_emotion"`
	OverallScore   float64                      `json:"overall_score"`
	Confidence     float64                      `json:"confidence"`
	Contributions  map[emotion.Modality]float64 `json:"contributions"`
}

// Engine fuses modality readings under an injected weight table.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine after validating the weight table.
func NewEngine(weights Weights) (*Engine, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: weights}, nil
}

// Fuse combines the present modality readings into one Result.
//
// The modality with the highest weighted score (score * weight) wins and
// names the overall emotion. The overall score is that maximum weighted
// value divided by the summed weight of all present modalities; present
// weights are deliberately not renormalized to 1. Confidence is the
// present weight sum capped at 1.0. Ties resolve to the first modality in
// the fixed order text, voice, face.
//
// Zero present modalities is not an error: the result is the defined
// default (neutral, 0.5, 0.5).
func (e *Engine) Fuse(input Input) (Result, error) {
	for modality, reading := range input {
		if !modality.Valid() {
			return Result{}, fmt.Errorf("%w: unknown modality %q", ErrInvalidInput, modality)
		}
		if !reading.Emotion.Valid() {
			return Result{}, fmt.Errorf("%w: unknown emotion label %q for %s", ErrInvalidInput, reading.Emotion, modality)
		}
		if reading.Score < 0 || reading.Score > 1 {
			return Result{}, fmt.Errorf("%w: score %v for %s outside [0,1]", ErrInvalidInput, reading.Score, modality)
		}
	}

	result := Result{
		FusionID:      uuid.NewString(),
		Contributions: make(map[emotion.Modality]float64, len(input)),
	}

	if len(input) == 0 {
		result.OverallEmotion = emotion.Neutral
		result.OverallScore = 0.5
		result.Confidence = 0.5
		return result, nil
	}

	best := emotion.Neutral
	bestWeighted := -1.0
	totalWeight := 0.0
	// Fixed order keeps tie-breaks deterministic.
	for _, modality := range emotion.Modalities {
		reading, ok := input[modality]
		if !ok {
			continue
		}
		weight := e.weights[modality]
		weighted := reading.Score * weight
		result.Contributions[modality] = weighted
		totalWeight += weight
		if weighted > bestWeighted {
			bestWeighted = weighted
			best = reading.Emotion
		}
	}

	result.OverallEmotion = best
	if totalWeight > 0 {
		result.OverallScore = bestWeighted / totalWeight
	} else {
		result.OverallScore = 0.5
	}
	result.Confidence = math.Min(totalWeight, 1.0)
	return result, nil
}
