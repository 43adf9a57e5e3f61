package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoustigo/dsssmodem/control"
	"github.com/acoustigo/dsssmodem/dsss"
)

type fakeTransmitter struct {
	samples [][]dsss.Sample
}

func (f *fakeTransmitter) Transmit(ctx context.Context, samples []dsss.Sample) error {
	f.samples = append(f.samples, samples)
	return nil
}

func TestKISSPort_ClientWriteTriggersModulate(t *testing.T) {
	cfg := dsss.DefaultConfig()
	cfg.SequenceLength = 15
	cfg.Seed = dsss.DefaultSeeds[15]

	ctl, err := control.New(cfg, nil, nil)
	require.NoError(t, err)
	defer ctl.Close()

	tx := &fakeTransmitter{}
	port, err := Open(ctl, tx, "", nil)
	require.NoError(t, err)
	defer port.Close()

	client, err := openClient(port.Name())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write(Encapsulate([]byte{0x42}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(tx.samples) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLdpcVariantFor_PicksSmallestFittingVariant(t *testing.T) {
	assert.Equal(t, 0, ldpcVariantFor(1))
	assert.Equal(t, 2, ldpcVariantFor(2))
	assert.Equal(t, 3, ldpcVariantFor(100))
}
