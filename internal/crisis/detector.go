// Package crisis classifies free-text messages for crisis risk. The
// detector is stateless: identical input always yields an identical
// response, and no message can make it fail.
package crisis

import (
	"errors"
	"fmt"
	"strings"
)

// Level grades the detected crisis severity.
type Level string

const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Severity thresholds, evaluated top-down; the first match wins.
const (
	criticalSeverity = 9
	highSeverity     = 7
	moderateSeverity = 5
	lowSeverity      = 3
)

// ErrInvalidIndicators is returned for a malformed indicator table at
// load time; classification itself never fails.
var ErrInvalidIndicators = errors.New("invalid crisis indicator table")

// Indicator is one entry of the read-only crisis lookup table.
type Indicator struct {
	Keyword  string `json:"keyword" koanf:"keyword"`
	Severity int    `json:"severity" koanf:"severity"`
	Category string `json:"category" koanf:"category"`
}

// Resource is a support contact included in a response.
type Resource struct {
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	Availability string `json:"availability"`
}

// Response is the classification outcome for one message. It is produced
// fresh per message and never merged with prior state.
type Response struct {
	Level                     Level      `json:"crisis_level"`
	DetectedIndicators        []string   `json:"detected_indicators"`
	ImmediateActions          []string   `json:"immediate_actions"`
	Resources                 []Resource `json:"resources"`
	EscalationRequired        bool       `json:"escalation_required"`
	EmergencyContactTriggered bool       `json:"emergency_contact_triggered"`
}

// DefaultIndicators returns the standard indicator table.
func DefaultIndicators() []Indicator {
	return []Indicator{
		// Critical: immediate intervention.
		{Keyword: "suicide", Severity: 10, Category: "suicide"},
		{Keyword: "kill myself", Severity: 10, Category: "suicide"},
		{Keyword: "end my life", Severity: 10, Category: "suicide"},
		{Keyword: "want to die", Severity: 10, Category: "suicide"},

		// High severity: urgent attention.
		{Keyword: "self harm", Severity: 9, Category: "self_harm"},
		{Keyword: "cut myself", Severity: 9, Category: "self_harm"},
		{Keyword: "hurt myself", Severity: 8, Category: "self_harm"},
		{Keyword: "overdose", Severity: 9, Category: "self_harm"},

		// Moderate severity: close monitoring.
		{Keyword: "hopeless", Severity: 6, Category: "depression"},
		{Keyword: "worthless", Severity: 6, Category: "depression"},
		{Keyword: "can't go on", Severity: 7, Category: "depression"},
		{Keyword: "give up", Severity: 5, Category: "depression"},

		// Violence indicators.
		{Keyword: "hurt someone", Severity: 9, Category: "violence"},
		{Keyword: "kill someone", Severity: 10, Category: "violence"},
	}
}

// Detector scans messages against an immutable indicator table.
type Detector struct {
	indicators []Indicator
}

// NewDetector creates a detector after validating the table. Keywords
// are matched lower-cased, so the table must be lower-case already. A
// nil table selects the default one.
func NewDetector(indicators []Indicator) (*Detector, error) {
	if indicators == nil {
		indicators = DefaultIndicators()
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrInvalidIndicators)
	}
	for i, ind := range indicators {
		if ind.Keyword == "" {
			return nil, fmt.Errorf("%w: entry %d has empty keyword", ErrInvalidIndicators, i)
		}
		if ind.Keyword != strings.ToLower(ind.Keyword) {
			return nil, fmt.Errorf("%w: keyword %q is not lower-case", ErrInvalidIndicators, ind.Keyword)
		}
		if ind.Severity < 1 || ind.Severity > 10 {
			return nil, fmt.Errorf("%w: keyword %q has severity %d outside 1-10", ErrInvalidIndicators, ind.Keyword, ind.Severity)
		}
		if ind.Category == "" {
			return nil, fmt.Errorf("%w: keyword %q has empty category", ErrInvalidIndicators, ind.Keyword)
		}
	}
	table := make([]Indicator, len(indicators))
	copy(table, indicators)
	return &Detector{indicators: table}, nil
}

// Analyze scans one message for crisis indicators and returns the level
// plus its prescribed action and resource bundle. Matching is literal
// lower-cased substring matching, not word-boundary matching. An empty
// message classifies as LevelNone.
func (d *Detector) Analyze(message, subjectID string) Response {
	_ = subjectID // classification is per-message; the id only matters to the caller's audit trail

	lower := strings.ToLower(message)
	detected := []string{}
	maxSeverity := 0
	for _, ind := range d.indicators {
		if strings.Contains(lower, ind.Keyword) {
			detected = append(detected, ind.Keyword)
			if ind.Severity > maxSeverity {
				maxSeverity = ind.Severity
			}
		}
	}

	level := LevelNone
	switch {
	case maxSeverity >= criticalSeverity:
		level = LevelCritical
	case maxSeverity >= highSeverity:
		level = LevelHigh
	case maxSeverity >= moderateSeverity:
		level = LevelModerate
	case maxSeverity >= lowSeverity:
		level = LevelLow
	}

	response := bundleFor(level)
	response.DetectedIndicators = detected
	return response
}

// bundleFor returns the fixed action/resource bundle for a level. The
// bundles are configuration data; tests pin them verbatim.
func bundleFor(level Level) Response {
	switch level {
	case LevelCritical:
		return Response{
			Level: LevelCritical,
			ImmediateActions: []string{
				"IMMEDIATE: Contact emergency services (911)",
				"Display National Suicide Prevention Lifeline: 988",
				"Notify on-call crisis counselor",
				"Alert emergency contacts",
				"Lock dangerous features (e.g., medication reminders)",
			},
			Resources: []Resource{
				{Name: "National Suicide Prevention Lifeline", Contact: "988", Availability: "24/7"},
				{Name: "Crisis Text Line", Contact: "Text HOME to 741741", Availability: "24/7"},
				{Name: "Emergency Services", Contact: "911", Availability: "24/7"},
			},
			EscalationRequired:        true,
			EmergencyContactTriggered: true,
		}
	case LevelHigh:
		return Response{
			Level: LevelHigh,
			ImmediateActions: []string{
				"Connect to crisis counselor immediately",
				"Display crisis hotline numbers",
				"Notify therapist if available",
				"Suggest safety planning",
			},
			Resources: []Resource{
				{Name: "National Suicide Prevention Lifeline", Contact: "988", Availability: "24/7"},
				{Name: "Crisis Text Line", Contact: "Text HOME to 741741", Availability: "24/7"},
				{Name: "SAMHSA Helpline", Contact: "1-800-662-4357", Availability: "24/7"},
			},
			EscalationRequired: true,
		}
	case LevelModerate:
		return Response{
			Level: LevelModerate,
			ImmediateActions: []string{
				"Offer to connect with counselor",
				"Provide coping resources",
				"Suggest crisis chat support",
				"Monitor closely",
			},
			Resources: []Resource{
				{Name: "Crisis Text Line", Contact: "Text HOME to 741741", Availability: "24/7"},
				{Name: "SAMHSA Helpline", Contact: "1-800-662-4357", Availability: "24/7"},
			},
		}
	case LevelLow:
		return Response{
			Level: LevelLow,
			ImmediateActions: []string{
				"Provide supportive resources",
				"Suggest wellness activities",
				"Offer to schedule therapist session",
			},
			Resources: []Resource{
				{Name: "Crisis Text Line", Contact: "Text HOME to 741741", Availability: "24/7"},
			},
		}
	default:
		return Response{Level: LevelNone, ImmediateActions: []string{}, Resources: []Resource{}}
	}
}
