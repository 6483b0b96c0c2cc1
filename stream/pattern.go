package stream

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// PatternLength is the number of alternating on/off lengths in a Pattern.
const PatternLength = 4

// Pattern is a dash array: on, off, on, off segment lengths applied to a line.
type Pattern [PatternLength]float64

// RestPattern returns the pattern for step zero, a full dash followed by a full gap.
func RestPattern(dashLength, gapLength float64) Pattern {
	return Pattern{dashLength, gapLength, 0, 0}
}

// Period is the total length covered by the pattern.
func (p Pattern) Period() float64 {
	var total float64
	for _, v := range p {
		total += v
	}
	return total
}

// Lit reports whether position x along the line falls on a drawn segment.
// Positions repeat every Period.
func (p Pattern) Lit(x float64) bool {
	period := p.Period()
	if period <= 0 {
		return false
	}
	x = math.Mod(x, period)
	if x < 0 {
		x += period
	}
	for i, v := range p {
		if x < v {
			return i%2 == 0
		}
		x -= v
	}
	return false
}

// Float32s returns the pattern in the single precision form style layers use.
func (p Pattern) Float32s() []float32 {
	out := make([]float32, PatternLength)
	for i, v := range p {
		out[i] = float32(v)
	}
	return out
}

// MarshalBinary encodes the pattern as a count followed by little endian float32s.
func (p Pattern) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 2, (PatternLength*4)+2)
	binary.LittleEndian.PutUint16(data, PatternLength)
	for _, v := range p {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(float32(v)))
	}

	return data, nil
}

// MarshalJSON encodes the pattern as a plain array.
func (p Pattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Float32s())
}

// Update is a pattern published for a layer. Seq counts updates per layer.
type Update struct {
	LayerID string  `json:"layer"`
	Seq     uint64  `json:"seq"`
	Pattern Pattern `json:"dasharray"`
}
