package temporal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affectlab/affectd/internal/emotion"
)

var baseTime = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

// record builds a history entry offset from baseTime by the given number
// of hours.
func record(hourOffset int, label emotion.Label, score float64, text string) emotion.Record {
	return emotion.Record{
		SubjectID:  "subject-1",
		Modality:   emotion.ModalityText,
		Emotion:    label,
		Score:      score,
		Confidence: 0.9,
		Timestamp:  baseTime.Add(time.Duration(hourOffset) * time.Hour),
		SourceText: text,
	}
}

// constantHistory builds n identical neutral records an hour apart.
func constantHistory(n int) []emotion.Record {
	history := make([]emotion.Record, n)
	for i := range history {
		history[i] = record(i, emotion.Neutral, 0.5, "nothing new today")
	}
	return history
}

func TestAnalyzePatterns_InsufficientData(t *testing.T) {
	a := NewAnalyzer(nil)

	report := a.AnalyzePatterns(constantHistory(4))

	assert.Equal(t, StatusInsufficientData, report.Status)
	assert.Equal(t, 4, report.TotalRecords)
	assert.Empty(t, report.Triggers)
	assert.Empty(t, report.Anomalies)
}

func TestAnalyzePatterns_BundlesAllAnalyses(t *testing.T) {
	a := NewAnalyzer(nil)
	history := constantHistory(12)

	report := a.AnalyzePatterns(history)

	require.Equal(t, StatusOK, report.Status)
	assert.Equal(t, 12, report.TotalRecords)
	assert.NotEmpty(t, report.Heatmap.Daily)
	assert.NotEmpty(t, report.Heatmap.Hourly)
	assert.Equal(t, StatusOK, report.Forecast.Status)
}

func TestHeatmap_Buckets(t *testing.T) {
	a := NewAnalyzer(nil)

	history := []emotion.Record{
		record(0, emotion.Joy, 1.0, ""),     // day 1, hour 8, value 1.0
		record(1, emotion.Sadness, 0.8, ""), // day 1, hour 9, value -0.4
		record(24, emotion.Joy, 0.5, ""),    // day 2, hour 8, value 0.5
		record(25, emotion.Joy, 0.5, ""),    // day 2, hour 9, value 0.5
	}

	hm := a.Heatmap(history)

	require.Len(t, hm.Daily, 2)
	day1 := hm.Daily["2026-05-01"]
	assert.Equal(t, 2, day1.Count)
	assert.InDelta(t, 0.3, day1.AverageMood, 1e-9) // mean(1.0, -0.4)
	assert.InDelta(t, 0.98, day1.Variance, 1e-9)   // sample variance of {1.0, -0.4}

	day2 := hm.Daily["2026-05-02"]
	assert.Equal(t, 2, day2.Count)
	assert.InDelta(t, 0.5, day2.AverageMood, 1e-9)
	assert.InDelta(t, 0.0, day2.Variance, 1e-9)

	require.Len(t, hm.Hourly, 2)
	hour8 := hm.Hourly[8]
	assert.Equal(t, 2, hour8.Count)
	assert.InDelta(t, 0.75, hour8.AverageMood, 1e-9) // mean(1.0, 0.5)
}

func TestHeatmap_SingleElementBucketHasZeroVariance(t *testing.T) {
	a := NewAnalyzer(nil)

	hm := a.Heatmap([]emotion.Record{record(0, emotion.Fear, 1.0, "")})

	bucket := hm.Daily["2026-05-01"]
	assert.Equal(t, 1, bucket.Count)
	assert.Equal(t, 0.0, bucket.Variance)
	assert.InDelta(t, -0.7, bucket.AverageMood, 1e-9)
}

func TestDetectTriggers(t *testing.T) {
	a := NewAnalyzer(nil)

	history := []emotion.Record{
		record(0, emotion.Sadness, 0.8, "my boss was awful"),
		record(1, emotion.Anger, 0.9, "another deadline at work"), // two work keywords
		record(2, emotion.Joy, 0.7, "got praise at work"),
		record(3, emotion.Neutral, 0.5, "walked the dog"),
	}

	triggers := a.DetectTriggers(history)

	require.Len(t, triggers, 1)
	work := triggers[0]
	assert.Equal(t, "work", work.Category)
	// boss + deadline + work + work = 4 matches, 3 with negative emotions.
	assert.Equal(t, 4, work.Frequency)
	assert.InDelta(t, 75.0, work.NegativeCorrelation, 1e-9)
	assert.Equal(t, SeverityHigh, work.Severity)
	assert.LessOrEqual(t, len(work.SampleContexts), 3)
	assert.Equal(t, "my boss was awful", work.SampleContexts[0].Text)
}

func TestDetectTriggers_BelowThresholdsNotReported(t *testing.T) {
	a := NewAnalyzer(nil)

	// Only two "money" matches: below the three-match minimum.
	fewMatches := []emotion.Record{
		record(0, emotion.Fear, 0.9, "worried about money"),
		record(1, emotion.Fear, 0.9, "money again"),
	}
	assert.Empty(t, a.DetectTriggers(fewMatches))

	// Three matches but no negative co-occurrence.
	positive := []emotion.Record{
		record(0, emotion.Joy, 0.9, "payday money"),
		record(1, emotion.Joy, 0.9, "saved money"),
		record(2, emotion.Neutral, 0.5, "counted money"),
	}
	assert.Empty(t, a.DetectTriggers(positive))
}

func TestDetectTriggers_SortedByNegativeCorrelation(t *testing.T) {
	a := NewAnalyzer(nil)

	var history []emotion.Record
	// health: 3/3 negative.
	for i := 0; i < 3; i++ {
		history = append(history, record(i, emotion.Fear, 0.9, "so tired and sick"))
	}
	// work: 2/4 negative.
	history = append(history,
		record(10, emotion.Sadness, 0.8, "bad day at work"),
		record(11, emotion.Anger, 0.8, "work was rough"),
		record(12, emotion.Joy, 0.8, "work went well"),
		record(13, emotion.Neutral, 0.5, "work as usual"),
	)

	triggers := a.DetectTriggers(history)

	require.Len(t, triggers, 2)
	assert.Equal(t, "health", triggers[0].Category)
	assert.Equal(t, "work", triggers[1].Category)
	assert.Greater(t, triggers[0].NegativeCorrelation, triggers[1].NegativeCorrelation)
}

func TestDetectTriggers_KeepsFirstThreeContexts(t *testing.T) {
	a := NewAnalyzer(nil)

	var history []emotion.Record
	for i := 0; i < 6; i++ {
		history = append(history, record(i, emotion.Sadness, 0.8, fmt.Sprintf("work entry %d", i)))
	}

	triggers := a.DetectTriggers(history)

	require.Len(t, triggers, 1)
	require.Len(t, triggers[0].SampleContexts, 3)
	assert.Equal(t, "work entry 0", triggers[0].SampleContexts[0].Text)
	assert.Equal(t, "work entry 1", triggers[0].SampleContexts[1].Text)
	assert.Equal(t, "work entry 2", triggers[0].SampleContexts[2].Text)
}

func TestForecast_InsufficientData(t *testing.T) {
	a := NewAnalyzer(nil)

	forecast := a.Forecast(constantHistory(9))

	assert.Equal(t, StatusInsufficientData, forecast.Status)
}

func TestForecast_DampingAndConfidence(t *testing.T) {
	a := NewAnalyzer(nil)

	// 20 joy records at full score: every mood value is 1.0.
	var history []emotion.Record
	for i := 0; i < 20; i++ {
		history = append(history, record(i, emotion.Joy, 1.0, ""))
	}

	forecast := a.Forecast(history)

	require.Equal(t, StatusOK, forecast.Status)
	assert.Equal(t, TrendStable, forecast.TrendDirection)
	assert.InDelta(t, 1.0, forecast.CurrentMoodScore, 1e-9)
	assert.InDelta(t, 0.95, forecast.Predicted24h, 1e-9)
	assert.InDelta(t, 0.9, forecast.Predicted48h, 1e-9)
	assert.Equal(t, 0.7, forecast.Confidence)
}

func TestForecast_TrendDirections(t *testing.T) {
	a := NewAnalyzer(nil)

	improving := make([]emotion.Record, 0, 20)
	for i := 0; i < 10; i++ {
		improving = append(improving, record(i, emotion.Sadness, 0.8, "")) // -0.4
	}
	for i := 10; i < 20; i++ {
		improving = append(improving, record(i, emotion.Joy, 0.8, "")) // 0.8
	}
	assert.Equal(t, TrendImproving, a.Forecast(improving).TrendDirection)

	declining := make([]emotion.Record, 0, 20)
	for i := 0; i < 10; i++ {
		declining = append(declining, record(i, emotion.Joy, 0.8, ""))
	}
	for i := 10; i < 20; i++ {
		declining = append(declining, record(i, emotion.Anger, 0.8, "")) // -0.64
	}
	assert.Equal(t, TrendDeclining, a.Forecast(declining).TrendDirection)
}

func TestForecast_LowConfidenceBelowFifteenRecords(t *testing.T) {
	a := NewAnalyzer(nil)

	forecast := a.Forecast(constantHistory(12))

	require.Equal(t, StatusOK, forecast.Status)
	assert.Equal(t, 0.5, forecast.Confidence)
}

func TestDetectAnomalies_InsufficientData(t *testing.T) {
	a := NewAnalyzer(nil)

	assert.Empty(t, a.DetectAnomalies(constantHistory(9)))
}

func TestDetectAnomalies_ConstantSeriesHasNone(t *testing.T) {
	a := NewAnalyzer(nil)

	// Sample stddev is zero; the floor keeps z defined and at zero.
	assert.Empty(t, a.DetectAnomalies(constantHistory(30)))
}

func TestDetectAnomalies_FlagsOutlier(t *testing.T) {
	a := NewAnalyzer(nil)

	history := constantHistory(19)
	history = append(history, record(19, emotion.Anger, 1.0, "everything went wrong at once"))

	anomalies := a.DetectAnomalies(history)

	require.Len(t, anomalies, 1)
	anomaly := anomalies[0]
	assert.Equal(t, emotion.Anger, anomaly.Emotion)
	assert.Equal(t, SeverityHigh, anomaly.Severity)
	assert.Greater(t, anomaly.Deviation, 3.0)
	assert.Equal(t, "everything went wrong at once", anomaly.TextPreview)
}

func TestPreviewTruncatesLongText(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}
	assert.Len(t, preview(long), 100)
}
