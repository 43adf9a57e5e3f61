package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMSequence_UnsupportedLengthErrors(t *testing.T) {
	_, err := MSequence(17, 1)
	require.Error(t, err)
	var target *ErrUnsupportedLength
	assert.ErrorAs(t, err, &target)
}

func TestMSequence_OutputIsAllPMOne(t *testing.T) {
	for _, length := range SupportedLengths() {
		seq, err := MSequence(length, DefaultSeeds[length])
		require.NoError(t, err)
		require.Len(t, seq, length)
		for _, c := range seq {
			assert.True(t, c == 1 || c == -1, "chip %d out of range", c)
		}
	}
}

func TestMSequence_ZeroSeedFallsBackToDefault(t *testing.T) {
	withDefault, err := MSequence(31, DefaultSeeds[31])
	require.NoError(t, err)
	withZero, err := MSequence(31, 0)
	require.NoError(t, err)
	assert.Equal(t, withDefault, withZero)
}

func TestMSequence_IsDeterministic(t *testing.T) {
	a, err := MSequence(63, 7)
	require.NoError(t, err)
	b, err := MSequence(63, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestMSequence_AutocorrelationIsImpulsive checks the defining property of
// a maximal-length sequence: the periodic autocorrelation is length at lag
// 0 and exactly -1 everywhere else, for every supported length.
func TestMSequence_AutocorrelationIsImpulsive(t *testing.T) {
	for _, length := range SupportedLengths() {
		seq, err := MSequence(length, DefaultSeeds[length])
		require.NoError(t, err)

		for lag := 0; lag < length; lag++ {
			var sum int
			for i := 0; i < length; i++ {
				sum += int(seq[i]) * int(seq[(i+lag)%length])
			}
			if lag == 0 {
				assert.Equal(t, length, sum, "length %d lag 0", length)
			} else {
				assert.Equal(t, -1, sum, "length %d lag %d", length, lag)
			}
		}
	}
}

func TestMSequence_NonZeroSeedsAreDeterministicAcrossCalls(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.SampledFrom(SupportedLengths()).Draw(t, "length")
		seed := rapid.Uint32Range(1, 1<<uint(degreeForLength[length])-1).Draw(t, "seed")

		a, err := MSequence(length, seed)
		require.NoError(t, err)
		b, err := MSequence(length, seed)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
