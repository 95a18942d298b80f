// Package habitability rates how survivable a planet is for a species on a
// -100..100 scale from its three environment axes.
package habitability

import (
	"math"

	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/world/logic/mathx"
	"github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// MaxRed caps the lethality contributed by a single axis.
const MaxRed = 15

// Axis is one environment axis evaluated against a tolerance band.
type Axis struct {
	Immune   bool
	Min, Max int64
	Value    int64
}

// Value combines the axes. Any axis outside its band makes the result the
// negated sum of red penalties; otherwise the green scores are combined
// geometrically and scaled by how centered the planet is in each band.
func Value(axes []Axis) int64 {
	var value, red int64
	ideal := int64(10000)
	for _, a := range axes {
		if a.Immune {
			value += 10000
			continue
		}
		radius := mathx.FloorDiv(a.Max-a.Min, 2)
		center := mathx.FloorDiv(a.Min+a.Max, 2)
		delta := mathx.Abs(center - a.Value)

		if delta > radius {
			red += mathx.Min(delta-radius, MaxRed)
			continue
		}
		if radius == 0 {
			value += 10000
			continue
		}
		g := 100 - mathx.FloorDiv(100*delta, radius)
		value += g * g
		// Outer quartiles of the band pull the ideal factor down.
		if margin := 2*delta - radius; margin > 0 {
			ideal *= radius*2 - margin
			ideal = mathx.FloorDiv(ideal, radius*2)
		}
	}
	if red != 0 {
		return -red
	}
	root := int64(math.Sqrt(float64(value)/3) + 0.9)
	return root * ideal / 10000
}

// Planet rates planet p for species s.
func Planet(s *model.Species, p *model.Planet) int64 {
	axes := make([]Axis, 0, len(components.Axes))
	for _, name := range components.Axes {
		t := s.Habitability.Axis(name)
		axes = append(axes, Axis{Immune: t.Immune, Min: t.Min, Max: t.Max, Value: p.Environment.Axis(name)})
	}
	return Value(axes)
}
