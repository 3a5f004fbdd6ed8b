package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "MAX_IMAGE_SIZE", "CACHE_TTL", "DETECTOR_BACKEND", "DETECTOR_TIMEOUT",
		"DETECTOR_RATE_LIMIT", "DETECTOR_CONFIDENCE", "GEMINI_MODEL",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*1024*1024, cfg.MaxImageSize)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "mock", cfg.DetectorBackend)
	assert.Equal(t, 30*time.Second, cfg.DetectorTimeout)
	assert.Zero(t, cfg.DetectorRateLimit)
	assert.InDelta(t, 0.5, cfg.DetectorConfidence, 1e-9)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "90")
	t.Setenv("DETECTOR_BACKEND", "inference")
	t.Setenv("DETECTOR_TIMEOUT", "1500ms")
	t.Setenv("DETECTOR_CONFIDENCE", "0.35")
	t.Setenv("DETECTOR_RATE_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "inference", cfg.DetectorBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.DetectorTimeout)
	assert.InDelta(t, 0.35, cfg.DetectorConfidence, 1e-9)
	assert.Zero(t, cfg.DetectorRateLimit)
}
