// Package schedule runs the periodic wellness sweep: on a cron
// schedule it recomputes every known subject's pattern report and
// wellness score and logs the ones that need attention.
package schedule

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/service"
	"github.com/affectlab/affectd/internal/temporal"
	"github.com/affectlab/affectd/internal/wellness"
)

// SpecDisabled turns the sweep off.
const SpecDisabled = "off"

// FactorSource supplies a subject's current wellness factors. The
// second return is false when no factors are known for the subject,
// which skips their wellness scoring in the sweep.
type FactorSource interface {
	Factors(subjectID string) (wellness.Factors, bool)
}

// MoodSource derives wellness factors from a subject's recorded mood.
// The forecast's current mood score on [-1, 1] maps linearly onto the
// mood factor's [0, 100]; the factors no recorded signal covers stay at
// the neutral midpoint.
type MoodSource struct {
	svc *service.Service
}

// NewMoodSource creates a factor source backed by the service's
// pattern reports.
func NewMoodSource(svc *service.Service) *MoodSource {
	return &MoodSource{svc: svc}
}

// Factors reports derived factors for subjects with enough history for
// a forecast and false for everyone else.
func (m *MoodSource) Factors(subjectID string) (wellness.Factors, bool) {
	report := m.svc.Patterns(subjectID)
	if report.Status != temporal.StatusOK || report.Forecast.Status != temporal.StatusOK {
		return wellness.Factors{}, false
	}

	mood := (report.Forecast.CurrentMoodScore + 1) * 50
	if mood < 0 {
		mood = 0
	}
	if mood > 100 {
		mood = 100
	}

	return wellness.Factors{
		MoodScore:    mood,
		AnxietyLevel: 100 - mood,
		StressLevel:  100 - mood,

		SleepQuality: 50, ExerciseFrequency: 50, SocialInteraction: 50,
		MedicationAdherence: 50, TherapyAttendance: 50,
		MeditationPractice: 50, JournalingFrequency: 50,
		SubstanceUse: 50, SelfHarmIdeation: 50,
	}, true
}

// Scheduler drives the recurring sweep.
type Scheduler struct {
	cron   *cron.Cron
	svc    *service.Service
	source FactorSource
	logger *zap.Logger
}

// NewScheduler creates a scheduler from a cron spec. The spec accepts
// the standard five-field format plus descriptors like "@hourly";
// SpecDisabled produces a scheduler that never fires. A nil source
// limits the sweep to pattern reports.
func NewScheduler(spec string, svc *service.Service, source FactorSource, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		svc:    svc,
		source: source,
		logger: logger,
	}
	if spec == SpecDisabled {
		return s, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid wellness schedule %q: %w", spec, err)
	}
	s.cron = c
	return s, nil
}

// Start begins firing the sweep on schedule. It is a no-op for a
// disabled scheduler.
func (s *Scheduler) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("wellness sweep scheduled")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("wellness sweep stopped")
}

// Sweep runs one pass over all known subjects. It is exported so the
// host can trigger an immediate pass outside the schedule.
func (s *Scheduler) Sweep() {
	subjects := s.svc.Subjects()
	s.logger.Debug("wellness sweep started", zap.Int("subjects", len(subjects)))

	for _, subjectID := range subjects {
		s.sweepSubject(subjectID)
	}
}

func (s *Scheduler) sweepSubject(subjectID string) {
	report := s.svc.Patterns(subjectID)
	if report.Status == temporal.StatusOK {
		if report.Forecast.TrendDirection == temporal.TrendDeclining {
			s.logger.Warn("declining mood forecast",
				zap.String("subject_id", subjectID),
				zap.Float64("predicted_24h", report.Forecast.Predicted24h))
		}
		for _, anomaly := range report.Anomalies {
			if anomaly.Severity == temporal.SeverityHigh {
				s.logger.Warn("high severity mood anomaly",
					zap.String("subject_id", subjectID),
					zap.Float64("deviation", anomaly.Deviation))
			}
		}
	}

	if s.source == nil {
		return
	}
	factors, ok := s.source.Factors(subjectID)
	if !ok {
		return
	}
	score, err := s.svc.ScoreWellness(subjectID, factors)
	if err != nil {
		s.logger.Error("wellness sweep scoring failed",
			zap.String("subject_id", subjectID),
			zap.Error(err))
		return
	}
	if score.Trend == wellness.TrendDeclining {
		s.logger.Warn("declining wellness trend",
			zap.String("subject_id", subjectID),
			zap.Float64("overall_score", score.OverallScore))
	}
}
