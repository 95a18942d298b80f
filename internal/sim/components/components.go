// Package components declares the component schemas of the universe and
// which components each entity type is composed of.
package components

import (
	"fmt"
	"math"

	"github.com/jbradberry/universe/internal/sim/schema"
)

// Entity types.
const (
	TypeSpecies       = "species"
	TypePlanet        = "planet"
	TypeShip          = "ship"
	TypeMovementOrder = "movement_order"
)

// Component names.
const (
	Metadata              = "metadata"
	Position              = "position"
	Environment           = "environment"
	MineralConcentrations = "mineral_concentrations"
	Minerals              = "minerals"
	Population            = "population"
	Ownership             = "ownership"
	Installations         = "installations"
	Species               = "species"
	Habitability          = "habitability"
	Production            = "production"
	MovementOrder         = "movement_order"
)

// Environment axes, in the order habitability is evaluated.
var Axes = [...]string{"gravity", "temperature", "radiation"}

var (
	MetadataSchema = schema.NewComponent(Metadata,
		schema.Int("pk").Opt().Min(0),
		schema.String("type"),
	)

	PositionSchema = schema.NewComponent(Position,
		schema.Int("x"),
		schema.Int("y"),
		schema.Int("x_prev").Opt(),
		schema.Int("y_prev").Opt(),
	)

	EnvironmentSchema = schema.NewComponent(Environment,
		schema.Int("gravity").Between(0, 100).Display(displayGravity),
		schema.Int("temperature").Between(0, 100).Display(displayTemperature),
		schema.Int("radiation").Between(0, 100).Display(displayRadiation),
	)

	MineralConcentrationsSchema = schema.NewComponent(MineralConcentrations,
		schema.Int("ironium_conc").Between(0, 100),
		schema.Int("boranium_conc").Between(0, 100),
		schema.Int("germanium_conc").Between(0, 100),
	)

	MineralsSchema = schema.NewComponent(Minerals,
		schema.Int("ironium").Opt().Min(0),
		schema.Int("boranium").Opt().Min(0),
		schema.Int("germanium").Opt().Min(0),
	)

	PopulationSchema = schema.NewComponent(Population,
		schema.Int("population").Opt().Min(0),
	)

	OwnershipSchema = schema.NewComponent(Ownership,
		schema.Ref("owner_id", TypeSpecies).Opt(),
	)

	InstallationsSchema = schema.NewComponent(Installations,
		schema.Int("mines").Opt().Min(0),
		schema.Int("factories").Opt().Min(0),
	)

	SpeciesSchema = schema.NewComponent(Species,
		schema.String("name"),
		schema.String("plural_name"),
		schema.Int("growth_rate").Between(1, 20),
	)

	HabitabilitySchema = schema.NewComponent(Habitability,
		schema.Bool("gravity_immune"),
		schema.Int("gravity_min").Opt().Between(0, 100),
		schema.Int("gravity_max").Opt().Between(0, 100),
		schema.Bool("temperature_immune"),
		schema.Int("temperature_min").Opt().Between(0, 100),
		schema.Int("temperature_max").Opt().Between(0, 100),
		schema.Bool("radiation_immune"),
		schema.Int("radiation_min").Opt().Between(0, 100),
		schema.Int("radiation_max").Opt().Between(0, 100),
	).With(toleranceRange("gravity"), toleranceRange("temperature"), toleranceRange("radiation"))

	ProductionSchema = schema.NewComponent(Production,
		schema.Int("population_per_r").Opt().Min(1),
		schema.Int("minerals_per_m").Opt().Min(1),
		schema.Int("mines_per_pop").Opt().Min(1),
		schema.Int("factories_per_pop").Opt().Min(1),
	)

	MovementOrderSchema = schema.NewComponent(MovementOrder,
		schema.Ref("actor_id").Check(actorIsShip),
		schema.Int("seq").Min(0),
		schema.Int("warp").Between(0, 10),
		schema.Ref("target_id", TypePlanet, TypeShip).Opt(),
		schema.Int("x_t").Opt(),
		schema.Int("y_t").Opt(),
	).With(movementGoal)
)

var byType = map[string][]*schema.Component{
	TypeSpecies: {
		MetadataSchema, SpeciesSchema, HabitabilitySchema, ProductionSchema,
	},
	TypePlanet: {
		MetadataSchema, PositionSchema, EnvironmentSchema, MineralConcentrationsSchema,
		MineralsSchema, PopulationSchema, OwnershipSchema, InstallationsSchema,
	},
	TypeShip: {
		MetadataSchema, PositionSchema, MineralsSchema, PopulationSchema, OwnershipSchema,
	},
	TypeMovementOrder: {
		MetadataSchema, MovementOrderSchema,
	},
}

// ForType returns the ordered components of an entity type.
func ForType(typ string) ([]*schema.Component, bool) {
	cs, ok := byType[typ]
	return cs, ok
}

// Types lists every known entity type.
func Types() []string {
	return []string{TypeSpecies, TypePlanet, TypeShip, TypeMovementOrder}
}

func toleranceRange(axis string) schema.Validator {
	immuneKey, minKey, maxKey := axis+"_immune", axis+"_min", axis+"_max"
	return func(r schema.Record, _ schema.Resolver) error {
		immune, _ := r[immuneKey].(bool)
		hasMin, hasMax := r.Has(minKey), r.Has(maxKey)
		if immune && (hasMin || hasMax) {
			return schema.Errorf("'%s' and '%s' cannot be set if '%s' is true.", minKey, maxKey, immuneKey)
		}
		if !immune && (!hasMin || !hasMax) {
			return schema.Errorf("'%s' and '%s' must be set if '%s' is false.", minKey, maxKey, immuneKey)
		}
		return nil
	}
}

func actorIsShip(v any, _ schema.Record, res schema.Resolver) error {
	pk, _ := schema.AsInt(v)
	if typ, _ := res.TypeOf(pk); typ != TypeShip {
		return schema.Errorf("The acting object must be a ship.")
	}
	return nil
}

func movementGoal(r schema.Record, _ schema.Resolver) error {
	hasTarget := r.Has("target_id")
	hasCoords := r.Has("x_t") && r.Has("y_t")
	if hasTarget {
		target, _ := schema.AsInt(r["target_id"])
		actor, _ := schema.AsInt(r["actor_id"])
		if target == actor {
			return schema.Errorf("A ship cannot target itself for a movement order.")
		}
		if r.Has("x_t") || r.Has("y_t") {
			return schema.Errorf("Only one of 'target_id' or the target coordinates may be set.")
		}
		return nil
	}
	if !hasCoords {
		return schema.Errorf("Either of 'target_id' or the target coordinates must be set.")
	}
	return nil
}

func displayGravity(v any) any {
	n, _ := schema.AsInt(v)
	return fmt.Sprintf("%.3fg", math.Pow(2, 6*float64(n)/100-3))
}

func displayTemperature(v any) any {
	n, _ := schema.AsInt(v)
	return fmt.Sprintf("%d°C", 4*n-200)
}

func displayRadiation(v any) any {
	n, _ := schema.AsInt(v)
	return fmt.Sprintf("%dmR", n)
}
