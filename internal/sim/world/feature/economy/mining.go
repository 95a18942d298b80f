package economy

import (
	"github.com/jbradberry/universe/internal/sim/world/logic/mathx"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

type Yield struct {
	Ironium   int64
	Boranium  int64
	Germanium int64
}

func (y Yield) add(o Yield) Yield {
	return Yield{
		Ironium:   mathx.AddSat(y.Ironium, o.Ironium),
		Boranium:  mathx.AddSat(y.Boranium, o.Boranium),
		Germanium: mathx.AddSat(y.Germanium, o.Germanium),
	}
}

type MiningResult struct {
	Planets int
	Total   Yield
}

// Mine computes one turn of extraction for planet p worked by a species
// with coefficients c. Yields saturate at math.MaxInt64.
func Mine(c Coefficients, p *modelpkg.Planet) Yield {
	canOperate := mathx.MulSat(p.Population.Count()/10000, c.MinesPerPop)
	mines := mathx.Min(val(p.Installations.Mines), canOperate)
	if mines <= 0 {
		return Yield{}
	}
	capacity := mathx.MulSat(mines, c.MineralsPerM) / 10
	conc := p.Concentrations
	return Yield{
		Ironium:   mathx.Percent(capacity, conc.Ironium),
		Boranium:  mathx.Percent(capacity, conc.Boranium),
		Germanium: mathx.Percent(capacity, conc.Germanium),
	}
}

// RunMiningSystem adds each owned planet's yield to its mineral inventory.
// Owned planets always end with all three minerals materialised.
func RunMiningSystem(env SystemEnv, in SystemInput) MiningResult {
	var res MiningResult
	if env == nil {
		return res
	}
	for _, p := range env.SortedPlanets() {
		s, ok := owner(env, p)
		if !ok {
			continue
		}
		y := Mine(in.Defaults.For(s), p)
		m := &p.Minerals
		m.Ironium = modelpkg.Int(mathx.AddSat(val(m.Ironium), y.Ironium))
		m.Boranium = modelpkg.Int(mathx.AddSat(val(m.Boranium), y.Boranium))
		m.Germanium = modelpkg.Int(mathx.AddSat(val(m.Germanium), y.Germanium))
		res.Planets++
		res.Total = res.Total.add(y)
	}
	return res
}
