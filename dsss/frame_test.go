package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHeaderBitsOf_ParseHeaderBits_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := FrameHeader{
			FrameType:  byte(rapid.IntRange(0, 15).Draw(t, "frameType")),
			LdpcNType:  byte(rapid.IntRange(0, 3).Draw(t, "ldpcNType")),
			SequenceNo: byte(rapid.IntRange(0, 255).Draw(t, "sequenceNo")),
		}
		bits := headerBitsOf(h)
		require.Len(t, bits, headerBits)

		got, ok := parseHeaderBits(bits)
		require.True(t, ok)
		assert.Equal(t, h, got)
	})
}

func TestParseHeaderBits_DetectsSingleBitCorruption(t *testing.T) {
	h := FrameHeader{FrameType: 3, LdpcNType: 2, SequenceNo: 200}
	bits := headerBitsOf(h)

	for i := range bits {
		corrupted := append([]HardBit(nil), bits...)
		corrupted[i] ^= 1
		_, ok := parseHeaderBits(corrupted)
		assert.False(t, ok, "flipping bit %d should be caught by the header CRC", i)
	}
}

func TestParseHeaderBits_WrongLengthFails(t *testing.T) {
	_, ok := parseHeaderBits(make([]HardBit, 10))
	assert.False(t, ok)
}

func TestBytesToBits_BitsToBytes_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.SliceOf(rapid.Byte()).Draw(t, "bytes")
		bits := bytesToBits(b)
		assert.Equal(t, b, bitsToBytes(bits))
	})
}

// Variant 0's raw 1-byte capacity has no room for a length prefix, so
// it's unchanged; variants 1-3 each give up lengthPrefixBytes of their
// raw k/8 capacity to record the real payload length (see UserBytes).
func TestUserBytes_MatchesVariantCapacity(t *testing.T) {
	assert.Equal(t, 1, UserBytes(0))
	assert.Equal(t, 1, UserBytes(1))
	assert.Equal(t, 3, UserBytes(2))
	assert.Equal(t, 7, UserBytes(3))
}
