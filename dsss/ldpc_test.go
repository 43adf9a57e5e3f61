package dsss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func strongLLRsFor(bits []HardBit) []LLR {
	out := make([]LLR, len(bits))
	for i, b := range bits {
		if b == 0 {
			out[i] = MaxLLR
		} else {
			out[i] = MinLLR
		}
	}
	return out
}

func TestBuildLDPCCode_EncodeProducesValidCodewordForEveryVariant(t *testing.T) {
	for _, v := range LDPCVariants {
		code := buildLDPCCode(v.N, v.K)
		rapid.Check(t, func(t *rapid.T) {
			msg := make([]HardBit, v.K)
			for i := range msg {
				msg[i] = HardBit(rapid.IntRange(0, 1).Draw(t, "bit"))
			}
			cw := code.Encode(msg)
			require.Len(t, cw, v.N)
			assert.Equal(t, msg, cw[:v.K])
			assert.True(t, code.syndromeZero(cw), "encoded codeword must satisfy every parity check")
		})
	}
}

func TestLDPCDecode_NoiselessRecoversMessage(t *testing.T) {
	for i, v := range LDPCVariants {
		code := codeForVariant(i)
		msg := make([]HardBit, v.K)
		for j := range msg {
			msg[j] = HardBit(j % 2)
		}
		cw := code.Encode(msg)
		llrs := strongLLRsFor(cw)

		result := code.Decode(llrs, 20)
		require.True(t, result.Converged, "variant %d", i)
		assert.Equal(t, msg, result.Message, "variant %d", i)
	}
}

// distinctPositions draws count distinct indices in [0, n) from t.
func distinctPositions(t *rapid.T, n, count int) []int {
	seen := make(map[int]bool, count)
	out := make([]int, 0, count)
	for len(out) < count {
		p := rapid.IntRange(0, n-1).Draw(t, "pos")
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// TestLDPCDecode_CorrectsRandomBitFlipsUpToTheCorrectableWeight asserts
// property #6: decoding must converge to the original message for any
// set of up to floor((n-k)/8) flipped codeword bits, not merely for a
// hand-picked single position.
func TestLDPCDecode_CorrectsRandomBitFlipsUpToTheCorrectableWeight(t *testing.T) {
	for i, v := range LDPCVariants {
		code := codeForVariant(i)
		weight := code.correctableWeight()
		rapid.Check(t, func(t *rapid.T) {
			msg := make([]HardBit, v.K)
			for j := range msg {
				msg[j] = HardBit(rapid.IntRange(0, 1).Draw(t, "bit"))
			}
			cw := code.Encode(msg)
			llrs := strongLLRsFor(cw)

			flipped := distinctPositions(t, v.N, weight)
			for _, pos := range flipped {
				llrs[pos] = -llrs[pos]
			}

			result := code.Decode(llrs, 20)
			require.True(t, result.Converged, "variant %d: flips at %v must converge", i, flipped)
			assert.Equal(t, msg, result.Message, "variant %d: flips at %v", i, flipped)
		})
	}
}

func TestLDPCDecode_AllErasureInputStaysWithinMaxIterations(t *testing.T) {
	code := codeForVariant(0)
	// All-erasure input: no information at all, every check sees a tie.
	// The iteration count reported must not exceed the cap passed in.
	llrs := make([]LLR, code.n)
	result := code.Decode(llrs, 5)
	assert.LessOrEqual(t, result.Iterations, 5)
}

func TestCodeForVariant_MatchesLDPCVariantsIndex(t *testing.T) {
	for i, v := range LDPCVariants {
		code := codeForVariant(i)
		assert.Equal(t, v.N, code.n)
		assert.Equal(t, v.K, code.k)
	}
}
