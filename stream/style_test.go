package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineLayer(t *testing.T) {
	l, err := NewLineLayer(DefaultConfig().Layer)
	require.NoError(t, err)
	assert.Equal(t, DefaultLayerID, l.ID)
	assert.Equal(t, DefaultSourceID, l.SourceID)
	assert.Equal(t, 4.5, l.Width)
	assert.Equal(t, LineCapRound, l.Cap)
	assert.Equal(t, LineJoinRound, l.Join)
	assert.Equal(t, "#bf42f4", l.Colour.Hex())
	assert.Nil(t, l.DashArray)
}

func TestNewLineLayerBadColour(t *testing.T) {
	lc := DefaultConfig().Layer
	lc.Colour = "purple"
	_, err := NewLineLayer(lc)
	assert.Error(t, err)
}

func TestStyleSetDashPattern(t *testing.T) {
	s := NewStyle()
	err := s.SetDashPattern("missing", Pattern{1, 3, 0, 0})
	assert.ErrorIs(t, err, ErrSinkUnavailable)

	l, err := NewLineLayer(DefaultConfig().Layer)
	require.NoError(t, err)
	s.AddLayer(l)

	require.NoError(t, s.SetDashPattern(DefaultLayerID, Pattern{0.5, 3, 0.5, 0}))
	got, ok := s.Layer(DefaultLayerID)
	require.True(t, ok)
	assert.Equal(t, Pattern{0.5, 3, 0.5, 0}, *got.DashArray)

	// Copies are detached from the style.
	got.DashArray[0] = 9
	again, _ := s.Layer(DefaultLayerID)
	assert.Equal(t, 0.5, again.DashArray[0])

	s.RemoveLayer(DefaultLayerID)
	assert.ErrorIs(t, s.SetDashPattern(DefaultLayerID, Pattern{}), ErrSinkUnavailable)
}
