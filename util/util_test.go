package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupEasingDefaultsToLinear(t *testing.T) {
	e, err := LookupEasing("")
	require.NoError(t, err)
	for _, v := range []float64{0, 0.25, 0.5, 0.9} {
		assert.Equal(t, v, e(v))
	}
}

func TestLookupEasingUnknown(t *testing.T) {
	_, err := LookupEasing("bouncy")
	assert.Error(t, err)
}

func TestEasingEndpoints(t *testing.T) {
	for _, name := range EasingNames() {
		e, err := LookupEasing(name)
		require.NoError(t, err, name)
		assert.InDelta(t, 0, e(0), 1e-9, name)
		assert.InDelta(t, 1, e(1), 1e-9, name)
	}
}
