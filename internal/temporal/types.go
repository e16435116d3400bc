package temporal

import (
	"time"

	"github.com/affectlab/affectd/internal/emotion"
)

// Status tags analyzer results that have a minimum-sample threshold.
// Falling below the threshold is an explicit status, not an error.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Trend names the direction of the short-horizon mood forecast.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Severity grades triggers and anomalies.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DailyBucket aggregates mood values for one calendar day.
type DailyBucket struct {
	AverageMood float64 `json:"average_mood"`
	Count       int     `json:"count"`
	Variance    float64 `json:"variance"`
}

// HourlyBucket aggregates mood values for one hour of day.
type HourlyBucket struct {
	AverageMood float64 `json:"average_mood"`
	Count       int     `json:"count"`
}

// Heatmap buckets signed mood values by calendar day and by hour of day.
type Heatmap struct {
	Daily  map[string]DailyBucket `json:"daily"`
	Hourly map[int]HourlyBucket   `json:"hourly"`
}

// SampleContext is one excerpt illustrating a trigger match.
type SampleContext struct {
	Text      string        `json:"text"`
	Emotion   emotion.Label `json:"emotion"`
	Timestamp time.Time     `json:"timestamp"`
}

// Trigger is a keyword category whose mentions correlate with negative
// emotions often enough to report.
type Trigger struct {
	Category            string          `json:"category"`
	Frequency           int             `json:"frequency"`
	NegativeCorrelation float64         `json:"negative_correlation"`
	Severity            Severity        `json:"severity"`
	SampleContexts      []SampleContext `json:"sample_contexts"`
}

// Forecast is the short-horizon mood projection. Status is
// StatusInsufficientData when the history holds fewer than
// forecastMinRecords records; the remaining fields are zero then.
type Forecast struct {
	Status           Status  `json:"status"`
	TrendDirection   Trend   `json:"trend_direction,omitempty"`
	CurrentMoodScore float64 `json:"current_mood_score"`
	Predicted24h     float64 `json:"predicted_24h"`
	Predicted48h     float64 `json:"predicted_48h"`
	Confidence       float64 `json:"confidence"`
}

// Anomaly flags a record whose mood value deviates sharply from the
// subject's baseline.
type Anomaly struct {
	Timestamp   time.Time     `json:"timestamp"`
	Emotion     emotion.Label `json:"emotion"`
	Severity    Severity      `json:"severity"`
	Deviation   float64       `json:"deviation"`
	TextPreview string        `json:"text_preview"`
}

// PatternReport bundles every temporal analysis over one history slice.
// Status is StatusInsufficientData when the history holds fewer than
// patternMinRecords records; the payload fields are zero then.
type PatternReport struct {
	Status       Status    `json:"status"`
	Heatmap      Heatmap   `json:"temporal_heatmap,omitempty"`
	Triggers     []Trigger `json:"detected_triggers,omitempty"`
	Forecast     Forecast  `json:"forecast,omitempty"`
	Anomalies    []Anomaly `json:"anomalies,omitempty"`
	TotalRecords int       `json:"total_records"`
}
