package stream

import (
	"fmt"

	"github.com/matt-g-everett/dashtx/util"
)

// An Animation advances one step and produces the dash pattern for it.
type Animation interface {
	Advance() (step int, p Pattern)
}

// DashAnimation shifts a dash/gap pair along a line in a fixed number of steps.
// The first dashSteps steps shrink the leading dash while a trailing dash grows,
// the remaining gapSteps steps slide the gap from in front of the dash to behind it.
type DashAnimation struct {
	dashLength float64
	gapLength  float64
	totalSteps int
	dashSteps  float64
	gapSteps   float64
	easing     util.Easing

	step int
}

// NewDashAnimation creates an instance of a DashAnimation at step zero.
// Lengths and the step count must be positive. A nil easing is linear.
func NewDashAnimation(dashLength, gapLength float64, totalSteps int, easing util.Easing) (*DashAnimation, error) {
	if !(dashLength > 0) || !(gapLength > 0) {
		return nil, fmt.Errorf("%w: dash %v and gap %v must be positive", ErrInvalidConfig, dashLength, gapLength)
	}
	if totalSteps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, totalSteps)
	}

	a := new(DashAnimation)
	a.dashLength = dashLength
	a.gapLength = gapLength
	a.totalSteps = totalSteps
	a.dashSteps = float64(totalSteps) * dashLength / (dashLength + gapLength)
	a.gapSteps = float64(totalSteps) - a.dashSteps
	a.easing = easing
	if a.easing == nil {
		a.easing = func(t float64) float64 { return t }
	}
	a.step = 0

	return a, nil
}

// DashSteps is the number of steps spent moving the dash.
func (a *DashAnimation) DashSteps() float64 {
	return a.dashSteps
}

// GapSteps is the number of steps spent moving the gap.
func (a *DashAnimation) GapSteps() float64 {
	return a.gapSteps
}

// TotalSteps is the number of steps in one cycle.
func (a *DashAnimation) TotalSteps() int {
	return a.totalSteps
}

// Step is the current phase.
func (a *DashAnimation) Step() int {
	return a.step
}

// Advance moves to the next step, wrapping at the end of the cycle.
func (a *DashAnimation) Advance() (int, Pattern) {
	a.step++
	if a.step >= a.totalSteps {
		a.step = 0
	}
	return a.step, a.Pattern()
}

// Pattern calculates the dash array for the current step.
func (a *DashAnimation) Pattern() Pattern {
	step := float64(a.step)
	if step < a.dashSteps {
		progress := a.easing(step / a.dashSteps)
		return Pattern{
			(1 - progress) * a.dashLength,
			a.gapLength,
			progress * a.dashLength,
			0,
		}
	}

	// The leading dash is always empty here. This matches the published
	// sequence exactly, do not mirror the dash branch.
	progress := a.easing((step - a.dashSteps) / a.gapSteps)
	return Pattern{
		0,
		(1 - progress) * a.gapLength,
		a.dashLength,
		progress * a.gapLength,
	}
}
