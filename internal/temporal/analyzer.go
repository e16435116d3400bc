// Package temporal analyzes an ordered emotion history for one subject:
// heatmaps by day and hour, trigger correlations, a short-horizon
// forecast, and anomaly flags. Every operation is a pure function of the
// history slice it receives; the package keeps no state between calls.
package temporal

import (
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/affectlab/affectd/internal/emotion"
)

const (
	// patternMinRecords is the minimum history size for a full pattern
	// report.
	patternMinRecords = 5

	// forecastMinRecords is the minimum history size for forecasting and
	// anomaly detection.
	forecastMinRecords = 10

	// recentWindow bounds the record window used by forecasting and
	// anomaly flagging.
	recentWindow = 20

	// Damping factors for the 24h/48h projections. Heuristic regression
	// to the mean, not a fitted model; tunable, kept for
	// output-compatibility.
	damping24h = 0.95
	damping48h = 0.90

	// Z-score thresholds for anomaly flagging. Tunable heuristics.
	anomalyThreshold     = 2.0
	anomalyHighThreshold = 3.0

	// stddevFloor replaces a zero standard deviation so the z-score
	// stays defined on constant series.
	stddevFloor = 0.5

	// trendDelta is the half-window mean difference that separates
	// improving/declining from stable.
	trendDelta = 0.2

	// maxSampleContexts caps the excerpts kept per trigger category.
	maxSampleContexts = 3

	// previewLen bounds text excerpts in triggers and anomalies.
	previewLen = 100
)

// TriggerKeywords maps a trigger category to the keywords that count as a
// mention of it. Matching is literal lower-case substring matching.
type TriggerKeywords map[string][]string

// DefaultTriggerKeywords returns the standard trigger keyword table.
func DefaultTriggerKeywords() TriggerKeywords {
	return TriggerKeywords{
		"work":          {"work", "job", "boss", "deadline", "meeting", "project"},
		"relationships": {"relationship", "partner", "family", "friend", "alone", "lonely"},
		"health":        {"sick", "pain", "tired", "exhausted", "sleep", "insomnia"},
		"financial":     {"money", "debt", "bills", "financial", "broke", "expensive"},
		"time":          {"late", "night", "morning", "evening", "weekend"},
	}
}

// Analyzer runs temporal analyses under an injected trigger keyword
// table. The zero-dependency construction keeps it safe for concurrent
// use across subjects.
type Analyzer struct {
	triggerKeywords TriggerKeywords
}

// NewAnalyzer creates an analyzer. A nil keyword table selects the
// default one.
func NewAnalyzer(keywords TriggerKeywords) *Analyzer {
	if keywords == nil {
		keywords = DefaultTriggerKeywords()
	}
	return &Analyzer{triggerKeywords: keywords}
}

// AnalyzePatterns bundles heatmap, triggers, forecast and anomalies into
// one report. Histories below patternMinRecords yield an
// insufficient-data report rather than an error.
func (a *Analyzer) AnalyzePatterns(history []emotion.Record) PatternReport {
	if len(history) < patternMinRecords {
		return PatternReport{Status: StatusInsufficientData, TotalRecords: len(history)}
	}
	return PatternReport{
		Status:       StatusOK,
		Heatmap:      a.Heatmap(history),
		Triggers:     a.DetectTriggers(history),
		Forecast:     a.Forecast(history),
		Anomalies:    a.DetectAnomalies(history),
		TotalRecords: len(history),
	}
}

// Heatmap buckets each record's signed mood value by calendar day and by
// hour of day, reporting the mean per bucket, the sample variance per
// daily bucket (zero for single-element buckets), and counts.
func (a *Analyzer) Heatmap(history []emotion.Record) Heatmap {
	daily := make(map[string][]float64)
	hourly := make(map[int][]float64)

	for _, rec := range history {
		value := rec.MoodValue()
		day := rec.Timestamp.UTC().Format("2006-01-02")
		daily[day] = append(daily[day], value)
		hourly[rec.Timestamp.UTC().Hour()] = append(hourly[rec.Timestamp.UTC().Hour()], value)
	}

	hm := Heatmap{
		Daily:  make(map[string]DailyBucket, len(daily)),
		Hourly: make(map[int]HourlyBucket, len(hourly)),
	}
	for day, values := range daily {
		variance := 0.0
		if len(values) > 1 {
			variance = sampleVariance(values)
		}
		hm.Daily[day] = DailyBucket{
			AverageMood: round2(mean(values)),
			Count:       len(values),
			Variance:    round2(variance),
		}
	}
	for hour, values := range hourly {
		hm.Hourly[hour] = HourlyBucket{
			AverageMood: round2(mean(values)),
			Count:       len(values),
		}
	}
	return hm
}

// DetectTriggers correlates keyword mentions in source text with negative
// emotions. A category is reported once it has at least three matches and
// more than 30% of them co-occur with a negative emotion; above 70% the
// severity is high. Output is sorted by negative correlation, descending.
func (a *Analyzer) DetectTriggers(history []emotion.Record) []Trigger {
	type tally struct {
		count    int
		negative int
		contexts []SampleContext
	}
	tallies := make(map[string]*tally)

	for _, rec := range history {
		if rec.SourceText == "" {
			continue
		}
		text := strings.ToLower(rec.SourceText)
		negative := rec.Emotion.Negative()

		for category, keywords := range a.triggerKeywords {
			for _, keyword := range keywords {
				if !strings.Contains(text, keyword) {
					continue
				}
				t := tallies[category]
				if t == nil {
					t = &tally{}
					tallies[category] = t
				}
				t.count++
				if negative {
					t.negative++
				}
				// First-seen excerpts only.
				if len(t.contexts) < maxSampleContexts {
					t.contexts = append(t.contexts, SampleContext{
						Text:      preview(rec.SourceText),
						Emotion:   rec.Emotion,
						Timestamp: rec.Timestamp,
					})
				}
			}
		}
	}

	var triggers []Trigger
	for category, t := range tallies {
		if t.count < 3 {
			continue
		}
		ratio := float64(t.negative) / float64(t.count)
		if ratio <= 0.3 {
			continue
		}
		severity := SeverityMedium
		if ratio > 0.7 {
			severity = SeverityHigh
		}
		triggers = append(triggers, Trigger{
			Category:            category,
			Frequency:           t.count,
			NegativeCorrelation: round1(ratio * 100),
			Severity:            severity,
			SampleContexts:      t.contexts,
		})
	}

	sort.Slice(triggers, func(i, j int) bool {
		if triggers[i].NegativeCorrelation != triggers[j].NegativeCorrelation {
			return triggers[i].NegativeCorrelation > triggers[j].NegativeCorrelation
		}
		if triggers[i].Frequency != triggers[j].Frequency {
			return triggers[i].Frequency > triggers[j].Frequency
		}
		return triggers[i].Category < triggers[j].Category
	})
	return triggers
}

// Forecast projects the mood trend over the next 24 and 48 hours from
// the last twenty records. Histories below forecastMinRecords yield an
// insufficient-data forecast.
func (a *Analyzer) Forecast(history []emotion.Record) Forecast {
	if len(history) < forecastMinRecords {
		return Forecast{Status: StatusInsufficientData}
	}

	recent := history
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	values := moodValues(recent)

	direction := TrendStable
	half := len(values) / 2
	firstHalf := mean(values[:half])
	secondHalf := mean(values[half:])
	switch {
	case secondHalf > firstHalf+trendDelta:
		direction = TrendImproving
	case secondHalf < firstHalf-trendDelta:
		direction = TrendDeclining
	}

	current := mean(values[len(values)-5:])

	confidence := 0.5
	if len(values) >= 15 {
		confidence = 0.7
	}

	return Forecast{
		Status:           StatusOK,
		TrendDirection:   direction,
		CurrentMoodScore: round2(current),
		Predicted24h:     round2(current * damping24h),
		Predicted48h:     round2(current * damping48h),
		Confidence:       confidence,
	}
}

// DetectAnomalies flags records in the last twenty whose mood value
// deviates from the whole-history baseline by more than two sample
// standard deviations; beyond three the severity is high. Histories
// below forecastMinRecords yield no anomalies.
func (a *Analyzer) DetectAnomalies(history []emotion.Record) []Anomaly {
	if len(history) < forecastMinRecords {
		return nil
	}

	values := moodValues(history)
	baseline := mean(values)
	stddev := sampleStddev(values)
	if stddev == 0 {
		stddev = stddevFloor
	}

	recent := history
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	var anomalies []Anomaly
	for _, rec := range recent {
		z := math.Abs(rec.MoodValue()-baseline) / stddev
		if z <= anomalyThreshold {
			continue
		}
		severity := SeverityMedium
		if z > anomalyHighThreshold {
			severity = SeverityHigh
		}
		anomalies = append(anomalies, Anomaly{
			Timestamp:   rec.Timestamp,
			Emotion:     rec.Emotion,
			Severity:    severity,
			Deviation:   round2(z),
			TextPreview: preview(rec.SourceText),
		})
	}
	return anomalies
}

func moodValues(history []emotion.Record) []float64 {
	values := make([]float64, len(history))
	for i, rec := range history {
		values[i] = rec.MoodValue()
	}
	return values
}

// The stats helpers are only called on non-empty slices; the thresholds
// above guarantee that, so the error returns collapse to zero values.

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func sampleVariance(values []float64) float64 {
	v, err := stats.SampleVariance(values)
	if err != nil {
		return 0
	}
	return v
}

func sampleStddev(values []float64) float64 {
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0
	}
	return sd
}

func preview(text string) string {
	if len(text) > previewLen {
		return text[:previewLen]
	}
	return text
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
