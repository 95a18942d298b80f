package model

import "github.com/jbradberry/universe/internal/sim/schema"

type Position struct {
	X, Y         int64
	XPrev, YPrev *int64
}

type Environment struct {
	Gravity     int64
	Temperature int64
	Radiation   int64
}

// Axis returns the environment value for one of components.Axes.
func (e Environment) Axis(name string) int64 {
	switch name {
	case "gravity":
		return e.Gravity
	case "temperature":
		return e.Temperature
	case "radiation":
		return e.Radiation
	}
	return 0
}

// Concentrations are mineral percentages (0..100) of a planet.
type Concentrations struct {
	Ironium   int64
	Boranium  int64
	Germanium int64
}

type Minerals struct {
	Ironium   *int64
	Boranium  *int64
	Germanium *int64
}

type Population struct {
	Population *int64
}

// Count reads an absent population as zero.
func (p Population) Count() int64 {
	if p.Population == nil {
		return 0
	}
	return *p.Population
}

type Ownership struct {
	OwnerID *int64
}

type Installations struct {
	Mines     *int64
	Factories *int64
}

type SpeciesTraits struct {
	Name       string
	PluralName string
	GrowthRate int64
}

type Tolerance struct {
	Immune   bool
	Min, Max int64
}

type Habitability struct {
	Gravity     Tolerance
	Temperature Tolerance
	Radiation   Tolerance
}

func (h Habitability) Axis(name string) Tolerance {
	switch name {
	case "gravity":
		return h.Gravity
	case "temperature":
		return h.Temperature
	case "radiation":
		return h.Radiation
	}
	return Tolerance{Immune: true}
}

// Production coefficients; nil reads as the configured default.
type Production struct {
	PopulationPerR  *int64
	MineralsPerM    *int64
	MinesPerPop     *int64
	FactoriesPerPop *int64
}

// Order is the goal of a movement order: either a target entity or fixed
// coordinates.
type Order struct {
	ActorID  int64
	Seq      int64
	Warp     int64
	TargetID *int64
	XT, YT   *int64
}

func (p *Position) decode(r schema.Record) {
	p.X, p.Y = reqInt(r, "x"), reqInt(r, "y")
	p.XPrev, p.YPrev = optInt(r, "x_prev"), optInt(r, "y_prev")
}

func (p Position) encode(r schema.Record) {
	r["x"], r["y"] = p.X, p.Y
	putInt(r, "x_prev", p.XPrev)
	putInt(r, "y_prev", p.YPrev)
}

func (e *Environment) decode(r schema.Record) {
	e.Gravity = reqInt(r, "gravity")
	e.Temperature = reqInt(r, "temperature")
	e.Radiation = reqInt(r, "radiation")
}

func (e Environment) encode(r schema.Record) {
	r["gravity"], r["temperature"], r["radiation"] = e.Gravity, e.Temperature, e.Radiation
}

func (c *Concentrations) decode(r schema.Record) {
	c.Ironium = reqInt(r, "ironium_conc")
	c.Boranium = reqInt(r, "boranium_conc")
	c.Germanium = reqInt(r, "germanium_conc")
}

func (c Concentrations) encode(r schema.Record) {
	r["ironium_conc"], r["boranium_conc"], r["germanium_conc"] = c.Ironium, c.Boranium, c.Germanium
}

func (m *Minerals) decode(r schema.Record) {
	m.Ironium = optInt(r, "ironium")
	m.Boranium = optInt(r, "boranium")
	m.Germanium = optInt(r, "germanium")
}

func (m Minerals) encode(r schema.Record) {
	putInt(r, "ironium", m.Ironium)
	putInt(r, "boranium", m.Boranium)
	putInt(r, "germanium", m.Germanium)
}

func (p *Population) decode(r schema.Record) { p.Population = optInt(r, "population") }
func (p Population) encode(r schema.Record)  { putInt(r, "population", p.Population) }

func (o *Ownership) decode(r schema.Record) { o.OwnerID = optInt(r, "owner_id") }
func (o Ownership) encode(r schema.Record)  { putInt(r, "owner_id", o.OwnerID) }

func (i *Installations) decode(r schema.Record) {
	i.Mines, i.Factories = optInt(r, "mines"), optInt(r, "factories")
}

func (i Installations) encode(r schema.Record) {
	putInt(r, "mines", i.Mines)
	putInt(r, "factories", i.Factories)
}

func (s *SpeciesTraits) decode(r schema.Record) {
	s.Name, _ = r["name"].(string)
	s.PluralName, _ = r["plural_name"].(string)
	s.GrowthRate = reqInt(r, "growth_rate")
}

func (s SpeciesTraits) encode(r schema.Record) {
	r["name"], r["plural_name"], r["growth_rate"] = s.Name, s.PluralName, s.GrowthRate
}

func (h *Habitability) decode(r schema.Record) {
	h.Gravity.decode(r, "gravity")
	h.Temperature.decode(r, "temperature")
	h.Radiation.decode(r, "radiation")
}

func (h Habitability) encode(r schema.Record) {
	h.Gravity.encode(r, "gravity")
	h.Temperature.encode(r, "temperature")
	h.Radiation.encode(r, "radiation")
}

func (t *Tolerance) decode(r schema.Record, axis string) {
	t.Immune, _ = r[axis+"_immune"].(bool)
	t.Min, t.Max = reqInt(r, axis+"_min"), reqInt(r, axis+"_max")
}

func (t Tolerance) encode(r schema.Record, axis string) {
	r[axis+"_immune"] = t.Immune
	if !t.Immune {
		r[axis+"_min"], r[axis+"_max"] = t.Min, t.Max
	}
}

func (p *Production) decode(r schema.Record) {
	p.PopulationPerR = optInt(r, "population_per_r")
	p.MineralsPerM = optInt(r, "minerals_per_m")
	p.MinesPerPop = optInt(r, "mines_per_pop")
	p.FactoriesPerPop = optInt(r, "factories_per_pop")
}

func (p Production) encode(r schema.Record) {
	putInt(r, "population_per_r", p.PopulationPerR)
	putInt(r, "minerals_per_m", p.MineralsPerM)
	putInt(r, "mines_per_pop", p.MinesPerPop)
	putInt(r, "factories_per_pop", p.FactoriesPerPop)
}

func (o *Order) decode(r schema.Record) {
	o.ActorID = reqInt(r, "actor_id")
	o.Seq = reqInt(r, "seq")
	o.Warp = reqInt(r, "warp")
	o.TargetID = optInt(r, "target_id")
	o.XT, o.YT = optInt(r, "x_t"), optInt(r, "y_t")
}

func (o Order) encode(r schema.Record) {
	r["actor_id"], r["seq"], r["warp"] = o.ActorID, o.Seq, o.Warp
	putInt(r, "target_id", o.TargetID)
	putInt(r, "x_t", o.XT)
	putInt(r, "y_t", o.YT)
}

// Int returns a pointer to a copy of v, for optional fields.
func Int(v int64) *int64 { return &v }

func reqInt(r schema.Record, k string) int64 {
	n, _ := schema.AsInt(r[k])
	return n
}

func optInt(r schema.Record, k string) *int64 {
	if !r.Has(k) {
		return nil
	}
	n, ok := schema.AsInt(r[k])
	if !ok {
		return nil
	}
	return &n
}

func putInt(r schema.Record, k string, v *int64) {
	if v != nil {
		r[k] = *v
	}
}
