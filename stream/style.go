package stream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Line cap and join values understood by line layers.
const (
	LineCapRound  = "round"
	LineJoinRound = "round"
)

// LineLayer is a line drawn from a source with an optional dash array.
type LineLayer struct {
	ID        string
	SourceID  string
	Width     float64
	Colour    colorful.Color
	Cap       string
	Join      string
	DashArray *Pattern
}

// NewLineLayer creates a LineLayer from its style properties.
func NewLineLayer(lc LayerConfig) (*LineLayer, error) {
	colour, err := colorful.Hex(lc.Colour)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", lc.ID, err)
	}

	l := new(LineLayer)
	l.ID = lc.ID
	l.SourceID = lc.SourceID
	l.Width = lc.Width
	l.Colour = colour
	l.Cap = lc.Cap
	l.Join = lc.Join
	return l, nil
}

// Style holds the layers currently attached to a map.
type Style struct {
	mu     sync.RWMutex
	layers map[string]*LineLayer
}

// NewStyle creates an empty Style.
func NewStyle() *Style {
	s := new(Style)
	s.layers = make(map[string]*LineLayer)
	return s
}

// AddLayer attaches a layer, replacing any layer with the same id.
func (s *Style) AddLayer(l *LineLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[l.ID] = l
}

// RemoveLayer detaches a layer.
func (s *Style) RemoveLayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, id)
}

// Layer returns a copy of the named layer.
func (s *Style) Layer(id string) (LineLayer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.layers[id]
	if !ok {
		return LineLayer{}, false
	}
	out := *l
	if l.DashArray != nil {
		p := *l.DashArray
		out.DashArray = &p
	}
	return out, true
}

// SetDashPattern sets the dash array of a layer.
func (s *Style) SetDashPattern(layerID string, p Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.layers[layerID]
	if !ok {
		return fmt.Errorf("%w: no layer %q", ErrSinkUnavailable, layerID)
	}
	l.DashArray = &p
	return nil
}

// MultiSink forwards every pattern to each of its sinks.
type MultiSink []Sink

// SetDashPattern sends p to every sink. All sinks are tried; the joined
// error reports the ones that failed.
func (m MultiSink) SetDashPattern(layerID string, p Pattern) error {
	var errs []error
	for _, s := range m {
		if err := s.SetDashPattern(layerID, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
