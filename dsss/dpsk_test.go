package dsss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestModulateDemodulateDPSK_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chips := rapid.SliceOfN(rapid.SampledFrom([]Chip{1, -1}), 1, 200).Draw(t, "chips")
		initial := rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "initial")

		phases := ModulateDPSK(chips, initial)
		soft := DemodulateDPSK(phases)

		require := assert.New(t)
		require.Len(soft, len(chips)-1)
		for i := 1; i < len(chips); i++ {
			want := float64(chips[i])
			require.InDelta(want, soft[i-1], 1e-9, "chip %d", i)
		}
	})
}

func TestDemodulateDPSK_ShortInputsYieldEmpty(t *testing.T) {
	assert.Empty(t, DemodulateDPSK(nil))
	assert.Empty(t, DemodulateDPSK([]Phase{1.0}))
}

func TestModulateDPSK_FirstChipSetsInitialPhase(t *testing.T) {
	phases := ModulateDPSK([]Chip{1, -1, 1}, 0.5)
	assert.InDelta(t, 0.5, phases[0], 1e-9)
}
