package model

import (
	"fmt"

	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
)

// NoPK marks an entity that has not been registered (or was unregistered).
const NoPK int64 = -1

type Meta struct {
	PK   int64
	Type string
}

// Entity is implemented by every entity type. Record encodes the entity back
// into its untyped form; it always includes pk and type.
type Entity interface {
	Meta() *Meta
	Record() schema.Record
}

// Located entities have a position on the galaxy grid.
type Located interface {
	Entity
	Location() *Position
}

// Inhabited entities carry a population and an optional owning species.
type Inhabited interface {
	Entity
	Residents() *Population
	Owner() *Ownership
}

type Species struct {
	meta         Meta
	Traits       SpeciesTraits
	Habitability Habitability
	Production   Production
}

type Planet struct {
	meta           Meta
	Position       Position
	Environment    Environment
	Concentrations Concentrations
	Minerals       Minerals
	Population     Population
	Ownership      Ownership
	Installations  Installations
}

type Ship struct {
	meta       Meta
	Position   Position
	Minerals   Minerals
	Population Population
	Ownership  Ownership
}

type MovementOrder struct {
	meta  Meta
	Order Order
}

func (s *Species) Meta() *Meta       { return &s.meta }
func (p *Planet) Meta() *Meta        { return &p.meta }
func (s *Ship) Meta() *Meta          { return &s.meta }
func (o *MovementOrder) Meta() *Meta { return &o.meta }

func (p *Planet) Location() *Position    { return &p.Position }
func (p *Planet) Residents() *Population { return &p.Population }
func (p *Planet) Owner() *Ownership      { return &p.Ownership }

func (s *Ship) Location() *Position    { return &s.Position }
func (s *Ship) Residents() *Population { return &s.Population }
func (s *Ship) Owner() *Ownership      { return &s.Ownership }

func NewSpecies() *Species             { return &Species{meta: Meta{PK: NoPK, Type: components.TypeSpecies}} }
func NewPlanet() *Planet               { return &Planet{meta: Meta{PK: NoPK, Type: components.TypePlanet}} }
func NewShip() *Ship                   { return &Ship{meta: Meta{PK: NoPK, Type: components.TypeShip}} }
func NewMovementOrder() *MovementOrder { return &MovementOrder{meta: Meta{PK: NoPK, Type: components.TypeMovementOrder}} }

// Decode builds the typed entity for a record that has already passed
// validation. Missing pk decodes as NoPK.
func Decode(r schema.Record) (Entity, error) {
	typ, _ := r["type"].(string)
	var e Entity
	switch typ {
	case components.TypeSpecies:
		s := NewSpecies()
		s.Traits.decode(r)
		s.Habitability.decode(r)
		s.Production.decode(r)
		e = s
	case components.TypePlanet:
		p := NewPlanet()
		p.Position.decode(r)
		p.Environment.decode(r)
		p.Concentrations.decode(r)
		p.Minerals.decode(r)
		p.Population.decode(r)
		p.Ownership.decode(r)
		p.Installations.decode(r)
		e = p
	case components.TypeShip:
		s := NewShip()
		s.Position.decode(r)
		s.Minerals.decode(r)
		s.Population.decode(r)
		s.Ownership.decode(r)
		e = s
	case components.TypeMovementOrder:
		o := NewMovementOrder()
		o.Order.decode(r)
		e = o
	default:
		return nil, fmt.Errorf("unknown entity type %q", typ)
	}
	if pk := optInt(r, "pk"); pk != nil {
		e.Meta().PK = *pk
	}
	return e, nil
}

func (m Meta) encode(r schema.Record) {
	if m.PK != NoPK {
		r["pk"] = m.PK
	}
	r["type"] = m.Type
}

func (s *Species) Record() schema.Record {
	r := schema.Record{}
	s.meta.encode(r)
	s.Traits.encode(r)
	s.Habitability.encode(r)
	s.Production.encode(r)
	return r
}

func (p *Planet) Record() schema.Record {
	r := schema.Record{}
	p.meta.encode(r)
	p.Position.encode(r)
	p.Environment.encode(r)
	p.Concentrations.encode(r)
	p.Minerals.encode(r)
	p.Population.encode(r)
	p.Ownership.encode(r)
	p.Installations.encode(r)
	return r
}

func (s *Ship) Record() schema.Record {
	r := schema.Record{}
	s.meta.encode(r)
	s.Position.encode(r)
	s.Minerals.encode(r)
	s.Population.encode(r)
	s.Ownership.encode(r)
	return r
}

func (o *MovementOrder) Record() schema.Record {
	r := schema.Record{}
	o.meta.encode(r)
	o.Order.encode(r)
	return r
}
