package economy

import (
	"github.com/jbradberry/universe/internal/sim/world/logic/fixed"
	"github.com/jbradberry/universe/internal/sim/world/logic/habitability"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// Capacity is the population a planet of 100% habitability supports.
const Capacity = 1_000_000

var (
	one        = fixed.Int(1)
	four       = fixed.Int(4)
	quarter    = fixed.MustParse("0.25")
	overcrowd  = fixed.MustParse("-0.12")
	overflow   = fixed.MustParse("-0.04")
	redDecline = fixed.MustParse("0.10")
)

type GrowthResult struct {
	Planets     int
	Depopulated int
}

// Grow returns the population after one turn for a planet with the given
// population and habitability (-45 means -45%).
func Grow(population, growthRate, hab int64) int64 {
	if hab == 0 {
		return population
	}
	pop := fixed.Int(population)
	rate := fixed.Ratio(growthRate, 100)
	h := fixed.Ratio(hab, 100)
	crowding := one

	if hab > 0 {
		ratio := pop.Quo(fixed.Int(Capacity).Mul(h))
		switch {
		case ratio.Cmp(four) > 0:
			rate = overcrowd
		case ratio.Cmp(one) > 0:
			rate = overflow.Mul(ratio.Sub(one))
		case ratio.Cmp(quarter) > 0:
			// 16(1-r)^2/9 tapers from 1 at a quarter full to 0 at capacity.
			d := one.Sub(ratio)
			crowding = fixed.Int(16).Mul(d).Mul(d).Quo(fixed.Int(9))
		}
	} else {
		// Red planets lose a tenth of the negative rating per turn.
		rate = redDecline
	}

	return pop.Mul(one.Add(rate.Mul(h).Mul(crowding))).Trunc().Int64()
}

// RunPopulationGrowthSystem applies growth to every owned planet. A planet
// whose population reaches zero loses both its population and its owner.
func RunPopulationGrowthSystem(env SystemEnv, _ SystemInput) GrowthResult {
	var res GrowthResult
	if env == nil {
		return res
	}
	for _, p := range env.SortedPlanets() {
		s, ok := owner(env, p)
		if !ok {
			continue
		}
		res.Planets++
		next := Grow(p.Population.Count(), s.Traits.GrowthRate, habitability.Planet(s, p))
		if next <= 0 {
			p.Population.Population = nil
			p.Ownership.OwnerID = nil
			res.Depopulated++
			continue
		}
		p.Population.Population = modelpkg.Int(next)
	}
	return res
}
