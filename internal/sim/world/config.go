package world

import (
	"github.com/jbradberry/universe/internal/sim/tuning"
	"github.com/jbradberry/universe/internal/sim/world/feature/economy"
	"github.com/jbradberry/universe/internal/sim/world/feature/movement"
)

type WorldConfig struct {
	// Movement sub-steps per turn.
	Substeps int

	// Production coefficients for species that leave theirs unset.
	Production economy.Coefficients
}

func (c *WorldConfig) applyDefaults() {
	if c.Substeps <= 0 {
		c.Substeps = movement.DefaultSubsteps
	}
	d := economy.DefaultCoefficients
	if c.Production.PopulationPerR <= 0 {
		c.Production.PopulationPerR = d.PopulationPerR
	}
	if c.Production.MineralsPerM <= 0 {
		c.Production.MineralsPerM = d.MineralsPerM
	}
	if c.Production.MinesPerPop <= 0 {
		c.Production.MinesPerPop = d.MinesPerPop
	}
	if c.Production.FactoriesPerPop <= 0 {
		c.Production.FactoriesPerPop = d.FactoriesPerPop
	}
}

// ConfigFromTuning maps a tuning file onto a WorldConfig.
func ConfigFromTuning(t tuning.Tuning) WorldConfig {
	return WorldConfig{
		Substeps: t.Movement.Substeps,
		Production: economy.Coefficients{
			PopulationPerR:  t.Production.PopulationPerR,
			MineralsPerM:    t.Production.MineralsPerM,
			MinesPerPop:     t.Production.MinesPerPop,
			FactoriesPerPop: t.Production.FactoriesPerPop,
		},
	}
}
