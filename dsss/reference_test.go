package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceCache_CachesAcrossIdenticalConfig(t *testing.T) {
	var rc ReferenceCache
	cfg := DefaultConfig()

	m1, s1, err := rc.Get(cfg)
	require.NoError(t, err)
	m2, s2, err := rc.Get(cfg)
	require.NoError(t, err)

	assert.Equal(t, m1, m2)
	assert.Equal(t, s1, s2)
}

func TestReferenceCache_RebuildsWhenSequenceLengthChanges(t *testing.T) {
	var rc ReferenceCache
	cfg := DefaultConfig()
	m1, _, err := rc.Get(cfg)
	require.NoError(t, err)

	cfg.SequenceLength = 63
	cfg.Seed = DefaultSeeds[63]
	m2, _, err := rc.Get(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, len(m1), len(m2))
}

func TestReferenceCache_InvalidateForcesRebuild(t *testing.T) {
	var rc ReferenceCache
	cfg := DefaultConfig()
	_, s1, err := rc.Get(cfg)
	require.NoError(t, err)

	rc.Invalidate()
	_, s2, err := rc.Get(cfg)
	require.NoError(t, err)
	// Same config rebuilt from scratch must be bit-identical.
	assert.Equal(t, s1, s2)
}

func TestReferenceCache_PropagatesInvalidSequenceLength(t *testing.T) {
	var rc ReferenceCache
	cfg := DefaultConfig()
	cfg.SequenceLength = 17
	_, _, err := rc.Get(cfg)
	assert.Error(t, err)
}
