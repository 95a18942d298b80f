// Package economy runs the per-turn economic stages: mining and population
// growth on owned planets.
package economy

import (
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// Coefficients are the production coefficients of a species, with absent
// values already replaced by defaults.
type Coefficients struct {
	PopulationPerR  int64
	MineralsPerM    int64
	MinesPerPop     int64
	FactoriesPerPop int64
}

// DefaultCoefficients match the values a species gets when it leaves its
// production fields unset.
var DefaultCoefficients = Coefficients{
	PopulationPerR:  1000,
	MineralsPerM:    10,
	MinesPerPop:     10,
	FactoriesPerPop: 10,
}

// For resolves the coefficients of s, falling back to c for absent fields.
func (c Coefficients) For(s *modelpkg.Species) Coefficients {
	out := c
	p := s.Production
	if p.PopulationPerR != nil {
		out.PopulationPerR = *p.PopulationPerR
	}
	if p.MineralsPerM != nil {
		out.MineralsPerM = *p.MineralsPerM
	}
	if p.MinesPerPop != nil {
		out.MinesPerPop = *p.MinesPerPop
	}
	if p.FactoriesPerPop != nil {
		out.FactoriesPerPop = *p.FactoriesPerPop
	}
	return out
}

type SystemEnv interface {
	SortedPlanets() []*modelpkg.Planet
	SpeciesByPK(pk int64) (*modelpkg.Species, bool)
}

type SystemInput struct {
	Defaults Coefficients
}

// owner returns the species owning p, or false for unowned planets and
// owners that no longer resolve to a species.
func owner(env SystemEnv, p *modelpkg.Planet) (*modelpkg.Species, bool) {
	if p.Ownership.OwnerID == nil {
		return nil, false
	}
	return env.SpeciesByPK(*p.Ownership.OwnerID)
}

func val(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
