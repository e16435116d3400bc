// Package emotion defines the canonical emotion record shared by every
// analytics component: the fixed label taxonomy, the normalizer that turns
// per-modality inference results into records, and the signed mood-weight
// table used for temporal analysis.
package emotion

import (
	"errors"
	"fmt"
	"time"
)

// Modality identifies the channel an emotion reading came from.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityFace  Modality = "face"
)

// Modalities lists all modalities in their fixed iteration order.
// The order is load-bearing: fusion tie-breaks resolve to the first
// modality in this sequence.
var Modalities = []Modality{ModalityText, ModalityVoice, ModalityFace}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityVoice, ModalityFace:
		return true
	}
	return false
}

// Label is one emotion from the fixed taxonomy.
type Label string

const (
	Joy      Label = "joy"
	Sadness  Label = "sadness"
	Anger    Label = "anger"
	Fear     Label = "fear"
	Disgust  Label = "disgust"
	Surprise Label = "surprise"
	Neutral  Label = "neutral"
)

// Valid reports whether l is part of the taxonomy.
func (l Label) Valid() bool {
	_, ok := moodWeights[l]
	return ok
}

// Negative reports whether l belongs to the negative emotion set used
// for trigger correlation.
func (l Label) Negative() bool {
	switch l {
	case Sadness, Anger, Fear, Disgust:
		return true
	}
	return false
}

// moodWeights maps each label to its signed mood weight. A record's mood
// value is weight * score, so positive emotions pull the mood up and
// negative emotions pull it down.
var moodWeights = map[Label]float64{
	Joy:      1.0,
	Neutral:  0.5,
	Surprise: 0.6,
	Sadness:  -0.5,
	Anger:    -0.8,
	Fear:     -0.7,
	Disgust:  -0.6,
}

// ErrInvalidRecord is returned when a reading cannot be normalized into a
// record: score or confidence outside [0,1], unknown label, or unknown
// modality. The failure is local to the single record.
var ErrInvalidRecord = errors.New("invalid emotion record")

// Record is one immutable observation about a subject. Records are owned
// by the per-subject history as an append-only ordered sequence.
type Record struct {
	SubjectID  string    `json:"subject_id"`
	Modality   Modality  `json:"modality"`
	Emotion    Label     `json:"emotion"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`

	// SourceText holds the original text for modality=text. Trigger
	// keyword matching reads it; it is empty for voice and face.
	SourceText string `json:"source_text,omitempty"`
}

// MoodValue returns the signed mood value for the record, its label
// weight scaled by the modality-internal score.
func (r Record) MoodValue() float64 {
	return moodWeights[r.Emotion] * r.Score
}

// Reading is a raw per-modality inference result before normalization.
type Reading struct {
	Emotion    Label
	Score      float64
	Confidence float64
	SourceText string
	Timestamp  time.Time
}

// NeutralReading is the safe default the host substitutes when a modality
// inference call fails: the core performs no retries.
func NeutralReading() Reading {
	return Reading{Emotion: Neutral, Score: 0.5, Confidence: 0.5}
}

// Normalize turns a modality-specific reading into a canonical Record.
// The timestamp defaults to the current UTC time when the reading carries
// none. Out-of-range scores are rejected, never clamped.
func Normalize(subjectID string, modality Modality, reading Reading) (Record, error) {
	if subjectID == "" {
		return Record{}, fmt.Errorf("%w: subject id is required", ErrInvalidRecord)
	}
	if !modality.Valid() {
		return Record{}, fmt.Errorf("%w: unknown modality %q", ErrInvalidRecord, modality)
	}
	if !reading.Emotion.Valid() {
		return Record{}, fmt.Errorf("%w: unknown emotion label %q", ErrInvalidRecord, reading.Emotion)
	}
	if reading.Score < 0 || reading.Score > 1 {
		return Record{}, fmt.Errorf("%w: score %v outside [0,1]", ErrInvalidRecord, reading.Score)
	}
	if reading.Confidence < 0 || reading.Confidence > 1 {
		return Record{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidRecord, reading.Confidence)
	}

	ts := reading.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	return Record{
		SubjectID:  subjectID,
		Modality:   modality,
		Emotion:    reading.Emotion,
		Score:      reading.Score,
		Confidence: reading.Confidence,
		Timestamp:  ts,
		SourceText: reading.SourceText,
	}, nil
}
