// Package wellness aggregates weighted life-domain factors into one
// composite score with qualitative strengths, gaps and recommendations.
package wellness

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Category names the five scored life domains.
type Category string

const (
	CategoryEmotional  Category = "emotional"
	CategoryBehavioral Category = "behavioral"
	CategoryTreatment  Category = "treatment"
	CategorySelfCare   Category = "self_care"
	CategoryRisk       Category = "risk"
)

// Trend names the score movement against recent history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ErrInvalidWeights is returned at construction for category weights
// that do not sum to 1.0.
var ErrInvalidWeights = errors.New("invalid wellness weights")

// ErrInvalidFactors is returned for factor values outside [0,100].
var ErrInvalidFactors = errors.New("invalid wellness factors")

// Weights maps each category to its share of the overall score.
type Weights map[Category]float64

// DefaultWeights returns the standard category weights.
func DefaultWeights() Weights {
	return Weights{
		CategoryEmotional:  0.30,
		CategoryBehavioral: 0.25,
		CategoryTreatment:  0.20,
		CategorySelfCare:   0.15,
		CategoryRisk:       0.10,
	}
}

// Validate checks that all five categories carry non-negative weights
// summing to 1.0.
func (w Weights) Validate() error {
	categories := []Category{CategoryEmotional, CategoryBehavioral, CategoryTreatment, CategorySelfCare, CategoryRisk}
	sum := 0.0
	for _, c := range categories {
		weight, ok := w[c]
		if !ok {
			return fmt.Errorf("%w: missing weight for category %q", ErrInvalidWeights, c)
		}
		if weight < 0 {
			return fmt.Errorf("%w: negative weight %v for category %q", ErrInvalidWeights, weight, c)
		}
		sum += weight
	}
	if len(w) != len(categories) {
		return fmt.Errorf("%w: unknown category in weight table", ErrInvalidWeights)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// Factors holds the 0-100 sub-scores per life domain. Anxiety, stress,
// substance use and self-harm ideation are inverted: lower is better.
type Factors struct {
	MoodScore    float64 `json:"mood_score"`
	AnxietyLevel float64 `json:"anxiety_level"`
	StressLevel  float64 `json:"stress_level"`

	SleepQuality      float64 `json:"sleep_quality"`
	ExerciseFrequency float64 `json:"exercise_frequency"`
	SocialInteraction float64 `json:"social_interaction"`

	MedicationAdherence float64 `json:"medication_adherence"`
	TherapyAttendance   float64 `json:"therapy_attendance"`

	MeditationPractice  float64 `json:"meditation_practice"`
	JournalingFrequency float64 `json:"journaling_frequency"`

	SubstanceUse     float64 `json:"substance_use"`
	SelfHarmIdeation float64 `json:"self_harm_ideation"`
}

// Validate checks every factor against [0,100].
func (f Factors) Validate() error {
	fields := map[string]float64{
		"mood_score":           f.MoodScore,
		"anxiety_level":        f.AnxietyLevel,
		"stress_level":         f.StressLevel,
		"sleep_quality":        f.SleepQuality,
		"exercise_frequency":   f.ExerciseFrequency,
		"social_interaction":   f.SocialInteraction,
		"medication_adherence": f.MedicationAdherence,
		"therapy_attendance":   f.TherapyAttendance,
		"meditation_practice":  f.MeditationPractice,
		"journaling_frequency": f.JournalingFrequency,
		"substance_use":        f.SubstanceUse,
		"self_harm_ideation":   f.SelfHarmIdeation,
	}
	for name, v := range fields {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s %v outside [0,100]", ErrInvalidFactors, name, v)
		}
	}
	return nil
}

// Score is the composite wellness outcome.
type Score struct {
	OverallScore        float64              `json:"overall_score"`
	CategoryScores      map[Category]float64 `json:"category_scores"`
	Strengths           []string             `json:"strengths"`
	AreasForImprovement []string             `json:"areas_for_improvement"`
	Recommendations     []string             `json:"recommendations"`
	Trend               Trend                `json:"trend"`
	CalculatedAt        time.Time            `json:"calculated_at"`
}

// Scorer computes wellness scores under an injected weight table.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer after validating the weights. A nil table
// selects the default one.
func NewScorer(weights Weights) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

// Score computes the composite wellness score. historicalScores are the
// previous overall scores, oldest first; with fewer than two the trend
// is always stable.
func (s *Scorer) Score(factors Factors, historicalScores []float64) (Score, error) {
	if err := factors.Validate(); err != nil {
		return Score{}, err
	}

	categoryScores := map[Category]float64{
		CategoryEmotional:  emotionalScore(factors),
		CategoryBehavioral: behavioralScore(factors),
		CategoryTreatment:  treatmentScore(factors),
		CategorySelfCare:   selfCareScore(factors),
		CategoryRisk:       riskScore(factors),
	}

	overall := 0.0
	for category, score := range categoryScores {
		overall += score * s.weights[category]
	}

	rounded := make(map[Category]float64, len(categoryScores))
	for category, score := range categoryScores {
		rounded[category] = round1(score)
	}

	return Score{
		OverallScore:        round1(overall),
		CategoryScores:      rounded,
		Strengths:           strengths(categoryScores),
		AreasForImprovement: improvements(categoryScores),
		Recommendations:     recommendations(factors),
		Trend:               trend(overall, historicalScores),
		CalculatedAt:        time.Now().UTC(),
	}, nil
}

func emotionalScore(f Factors) float64 {
	return f.MoodScore*0.4 + (100-f.AnxietyLevel)*0.3 + (100-f.StressLevel)*0.3
}

func behavioralScore(f Factors) float64 {
	return f.SleepQuality*0.4 + f.ExerciseFrequency*0.3 + f.SocialInteraction*0.3
}

func treatmentScore(f Factors) float64 {
	return f.MedicationAdherence*0.5 + f.TherapyAttendance*0.5
}

func selfCareScore(f Factors) float64 {
	return f.MeditationPractice*0.5 + f.JournalingFrequency*0.5
}

func riskScore(f Factors) float64 {
	return 100 - (f.SubstanceUse+f.SelfHarmIdeation)/2
}

// strengths returns one fixed message per category scoring above 70,
// falling back to a single generic encouragement so the list is never
// empty.
func strengths(scores map[Category]float64) []string {
	var out []string
	if scores[CategoryEmotional] > 70 {
		out = append(out, "Strong emotional well-being")
	}
	if scores[CategoryBehavioral] > 70 {
		out = append(out, "Healthy lifestyle habits")
	}
	if scores[CategoryTreatment] > 70 {
		out = append(out, "Excellent treatment adherence")
	}
	if scores[CategorySelfCare] > 70 {
		out = append(out, "Active self-care practice")
	}
	if scores[CategoryRisk] > 70 {
		out = append(out, "Low risk factors")
	}
	if len(out) == 0 {
		return []string{"Making progress in your wellness journey"}
	}
	return out
}

func improvements(scores map[Category]float64) []string {
	out := []string{}
	if scores[CategoryEmotional] < 50 {
		out = append(out, "Emotional regulation")
	}
	if scores[CategoryBehavioral] < 50 {
		out = append(out, "Lifestyle habits")
	}
	if scores[CategoryTreatment] < 70 {
		out = append(out, "Treatment adherence")
	}
	if scores[CategorySelfCare] < 30 {
		out = append(out, "Self-care practices")
	}
	if scores[CategoryRisk] < 70 {
		out = append(out, "Risk management")
	}
	return out
}

// maxRecommendations caps the recommendation list.
const maxRecommendations = 5

// recommendations derives suggestions from the raw factors, independent
// of the category scores.
func recommendations(f Factors) []string {
	var out []string
	if f.SleepQuality < 50 {
		out = append(out, "Focus on improving sleep hygiene - aim for 7-9 hours")
	}
	if f.ExerciseFrequency < 50 {
		out = append(out, "Increase physical activity - even 15 minutes daily helps")
	}
	if f.MeditationPractice < 30 {
		out = append(out, "Try daily meditation or mindfulness exercises")
	}
	if f.SocialInteraction < 50 {
		out = append(out, "Engage in social activities to boost mood")
	}
	if f.AnxietyLevel > 70 {
		out = append(out, "Practice anxiety management techniques")
	}
	if f.StressLevel > 70 {
		out = append(out, "Implement stress reduction strategies")
	}
	if len(out) == 0 {
		return []string{"Continue your current wellness practices"}
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// trend compares the new overall score to the mean of the last three
// historical scores.
func trend(overall float64, historical []float64) Trend {
	if len(historical) < 2 {
		return TrendStable
	}
	recent := historical
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	sum := 0.0
	for _, v := range recent {
		sum += v
	}
	recentAvg := sum / float64(len(recent))

	switch {
	case overall > recentAvg+5:
		return TrendImproving
	case overall < recentAvg-5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
