package util

import (
	"fmt"
	"sort"

	"github.com/fogleman/ease"
)

// Easing shapes an interpolation progress in [0, 1].
type Easing func(t float64) float64

var easings = map[string]Easing{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inOutCubic": ease.InOutCubic,
	"inOutSine":  ease.InOutSine,
}

// LookupEasing returns the named easing. An empty name means linear.
func LookupEasing(name string) (Easing, error) {
	if name == "" {
		return ease.Linear, nil
	}
	e, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return e, nil
}

// EasingNames lists the known easings in sorted order.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
