package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_SamplesPerBit(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.SequenceLength*cfg.SamplesPerPhase, cfg.SamplesPerBit())
}

func TestConfig_Validate_RejectsUnsupportedSequenceLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SequenceLength = 99
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsSamplesPerPhaseBelowFour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SamplesPerPhase = 3
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsCarrierAboveNyquist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CarrierFreq = cfg.SampleRate / 2
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsNonPositiveSampleRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsOutOfRangeCorrelationThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorrelationThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsPeakToNoiseRatioBelowOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PeakToNoiseRatio = 0.5
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsWeakLLRThresholdOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeakLLRThreshold = 200
	assert.Error(t, cfg.Validate())
}
