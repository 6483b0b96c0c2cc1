// Package preview draws an animated dash pattern as a row of terminal cells.
package preview

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/dashtx/stream"
)

const (
	dashRune = '━'
	gapRune  = ' '
)

// Screen is a Sink that renders each pattern across one terminal row.
type Screen struct {
	screen tcell.Screen
	colour tcell.Color
	// Terminal cells per unit of dash length.
	cellsPerUnit float64
	row          int

	mu     sync.Mutex
	layers map[string]bool
}

// NewScreen creates a Screen drawing in colour on row.
func NewScreen(screen tcell.Screen, colour colorful.Color, cellsPerUnit float64, row int) *Screen {
	s := new(Screen)
	s.screen = screen
	r, g, b := colour.Clamped().RGB255()
	s.colour = tcell.NewRGBColor(int32(r), int32(g), int32(b))
	s.cellsPerUnit = cellsPerUnit
	s.row = row
	s.layers = make(map[string]bool)
	return s
}

// Watch limits rendering to the named layer. With nothing watched every layer is drawn.
func (s *Screen) Watch(layerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[layerID] = true
}

// SetDashPattern draws p and shows it.
func (s *Screen) SetDashPattern(layerID string, p stream.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.layers) > 0 && !s.layers[layerID] {
		return fmt.Errorf("%w: layer %q not watched", stream.ErrSinkUnavailable, layerID)
	}

	width, height := s.screen.Size()
	if s.row >= height {
		return fmt.Errorf("%w: row %d outside %dx%d screen", stream.ErrSinkUnavailable, s.row, width, height)
	}

	style := tcell.StyleDefault.Foreground(s.colour)
	for x := 0; x < width; x++ {
		// Sample the centre of each cell.
		pos := (float64(x) + 0.5) / s.cellsPerUnit
		r := gapRune
		if p.Lit(pos) {
			r = dashRune
		}
		s.screen.SetContent(x, s.row, r, nil, style)
	}
	s.screen.Show()
	return nil
}
