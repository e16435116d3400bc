package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affectlab/affectd/internal/emotion"
	"github.com/affectlab/affectd/internal/wellness"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8005, cfg.Server.Port)
	assert.Equal(t, 30, cfg.History.WindowDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Crisis.Indicators)

	assert.NoError(t, cfg.FusionWeights().Validate())
	assert.NoError(t, cfg.WellnessWeights().Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
logging:
  level: debug
  format: console
history:
  window_days: 14
  retention_days: 60
fusion:
  weights:
    text: 0.5
    voice: 0.25
    face: 0.25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 14, cfg.History.WindowDays)
	assert.InDelta(t, 0.5, cfg.FusionWeights()[emotion.ModalityText], 1e-9)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9100\n")
	t.Setenv("AFFECTD_SERVER_PORT", "9200")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoad_RejectsBadFusionWeights(t *testing.T) {
	path := writeConfig(t, `
fusion:
  weights:
    text: 0.8
    voice: 0.3
    face: 0.3
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_RejectsBadWellnessWeights(t *testing.T) {
	path := writeConfig(t, `
wellness:
  weights:
    emotional: 0.9
    behavioral: 0.25
    treatment: 0.20
    self_care: 0.15
    risk: 0.10
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_RejectsBadIndicatorTable(t *testing.T) {
	path := writeConfig(t, `
crisis:
  indicators:
    - keyword: "Hopeless"
      severity: 5
      category: depression
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_RejectsRetentionShorterThanWindow(t *testing.T) {
	path := writeConfig(t, `
history:
  window_days: 30
  retention_days: 7
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_CustomIndicators(t *testing.T) {
	path := writeConfig(t, `
crisis:
  indicators:
    - keyword: "spiraling"
      severity: 4
      category: depression
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Crisis.Indicators, 1)
	assert.Equal(t, "spiraling", cfg.Crisis.Indicators[0].Keyword)
	assert.Equal(t, 4, cfg.Crisis.Indicators[0].Severity)
}

func TestWellnessWeights_Typed(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	weights := cfg.WellnessWeights()
	assert.InDelta(t, 0.30, weights[wellness.CategoryEmotional], 1e-9)
	assert.InDelta(t, 0.10, weights[wellness.CategoryRisk], 1e-9)
}
