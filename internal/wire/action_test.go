package wire

import (
	"errors"
	"testing"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeActionRoundTrip(t *testing.T) {
	for _, a := range []region.Action{region.Reserved, region.SampleGPS, region.Fly, region.Land, region.Idle, region.Charge, region.Abort} {
		buf := EncodeAction(a)
		assert.Len(t, buf, ActionTagSize)

		got, err := DecodeAction(buf)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestDecodeActionRejectsWrongSize(t *testing.T) {
	_, err := DecodeAction([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, droned.ErrBadSize))
}

func TestDecodeActionEmptyBuffer(t *testing.T) {
	_, err := DecodeAction(nil)
	require.Error(t, err)
}
