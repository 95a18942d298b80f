package world

import (
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	obslog "github.com/jbradberry/universe/internal/observability/log"
	"github.com/jbradberry/universe/internal/observability/metrics"
	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

const tracerName = "github.com/jbradberry/universe/internal/sim/world"

// World is the entity registry of one universe plus the turn driver that
// advances it. It is not safe for concurrent use.
type World struct {
	cfg WorldConfig

	turn  int64
	width int64
	seq   int64

	entities    map[int64]modelpkg.Entity
	byComponent map[string]map[int64]modelpkg.Entity

	log        *obslog.Logger
	metrics    *metrics.TurnCollector
	tracer     trace.Tracer
	turnLogger TurnLogger
}

func New(cfg WorldConfig) *World {
	cfg.applyDefaults()
	w := &World{
		cfg:    cfg,
		log:    obslog.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	w.reset()
	return w
}

func (w *World) SetLogger(l *obslog.Logger) {
	if l == nil {
		l = obslog.Nop()
	}
	w.log = l
}

func (w *World) SetMetrics(m *metrics.TurnCollector) { w.metrics = m }
func (w *World) SetTurnLogger(l TurnLogger)          { w.turnLogger = l }

func (w *World) SetTracer(t trace.Tracer) {
	if t == nil {
		t = otel.Tracer(tracerName)
	}
	w.tracer = t
}

func (w *World) Config() WorldConfig { return w.cfg }
func (w *World) Turn() int64         { return w.turn }
func (w *World) Width() int64        { return w.width }

// Seq is the next primary key the registry will allocate.
func (w *World) Seq() int64 { return w.seq }

func (w *World) reset() {
	w.turn, w.width, w.seq = 0, 0, 0
	w.entities = map[int64]modelpkg.Entity{}
	w.byComponent = map[string]map[int64]modelpkg.Entity{}
}

// TypeOf resolves reference fields during validation.
func (w *World) TypeOf(pk int64) (string, bool) {
	e, ok := w.entities[pk]
	if !ok {
		return "", false
	}
	return e.Meta().Type, true
}

// Validate checks r against every component of its entity type, metadata
// first, resolving references against the registry.
func (w *World) Validate(r schema.Record) error {
	comps, err := componentsOf(r)
	if err != nil {
		return err
	}
	for _, c := range comps {
		if err := c.Validate(r, w); err != nil {
			return err
		}
	}
	return nil
}

func componentsOf(r schema.Record) ([]*schema.Component, error) {
	if err := components.MetadataSchema.Validate(r, nil); err != nil {
		return nil, err
	}
	typ, _ := r["type"].(string)
	comps, ok := components.ForType(typ)
	if !ok {
		return nil, schema.Errorf("'type' is not a known entity type.")
	}
	return comps, nil
}

// Register validates e and adds it to the registry, allocating a pk when
// e has none.
func (w *World) Register(e modelpkg.Entity) error {
	if err := w.Validate(e.Record()); err != nil {
		return err
	}
	return w.insert(e)
}

// RegisterRecord validates an untyped record and registers the entity it
// describes.
func (w *World) RegisterRecord(r schema.Record) (modelpkg.Entity, error) {
	if err := w.Validate(r); err != nil {
		return nil, err
	}
	e, err := modelpkg.Decode(r)
	if err != nil {
		return nil, err
	}
	if err := w.insert(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (w *World) insert(e modelpkg.Entity) error {
	m := e.Meta()
	if m.PK == modelpkg.NoPK {
		m.PK = w.seq
	} else if _, dup := w.entities[m.PK]; dup {
		return schema.Errorf("'pk' is already in use.")
	}
	if m.PK >= w.seq {
		w.seq = m.PK + 1
	}
	w.entities[m.PK] = e

	comps, _ := components.ForType(m.Type)
	for _, c := range comps {
		idx, ok := w.byComponent[c.Name]
		if !ok {
			idx = map[int64]modelpkg.Entity{}
			w.byComponent[c.Name] = idx
		}
		idx[m.PK] = e
	}
	return nil
}

// Unregister removes e from the registry and clears its pk. Its pk is never
// handed out again.
func (w *World) Unregister(e modelpkg.Entity) {
	m := e.Meta()
	if m.PK == modelpkg.NoPK {
		return
	}
	delete(w.entities, m.PK)
	for _, idx := range w.byComponent {
		delete(idx, m.PK)
	}
	m.PK = modelpkg.NoPK
}

func (w *World) Lookup(pk int64) (modelpkg.Entity, bool) {
	e, ok := w.entities[pk]
	return e, ok
}

// Get returns the entity with pk if it has the named component.
func (w *World) Get(component string, pk int64) (modelpkg.Entity, bool) {
	e, ok := w.byComponent[component][pk]
	return e, ok
}

// All returns the entities that have the named component, by ascending pk.
func (w *World) All(component string) []modelpkg.Entity {
	idx := w.byComponent[component]
	out := make([]modelpkg.Entity, 0, len(idx))
	for _, e := range idx {
		out = append(out, e)
	}
	sortByPK(out)
	return out
}

// Entities returns every registered entity by ascending pk.
func (w *World) Entities() []modelpkg.Entity {
	out := make([]modelpkg.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sortByPK(out)
	return out
}

func (w *World) Len() int { return len(w.entities) }

func sortByPK(es []modelpkg.Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].Meta().PK < es[j].Meta().PK })
}

func (w *World) SortedPlanets() []*modelpkg.Planet {
	var out []*modelpkg.Planet
	for _, e := range w.All(components.MineralConcentrations) {
		if p, ok := e.(*modelpkg.Planet); ok {
			out = append(out, p)
		}
	}
	return out
}

func (w *World) SpeciesByPK(pk int64) (*modelpkg.Species, bool) {
	e, ok := w.Get(components.Species, pk)
	if !ok {
		return nil, false
	}
	s, ok := e.(*modelpkg.Species)
	return s, ok
}

func (w *World) SortedLocated() []modelpkg.Located {
	var out []modelpkg.Located
	for _, e := range w.All(components.Position) {
		if l, ok := e.(modelpkg.Located); ok {
			out = append(out, l)
		}
	}
	return out
}

func (w *World) SortedMovementOrders() []*modelpkg.MovementOrder {
	var out []*modelpkg.MovementOrder
	for _, e := range w.All(components.MovementOrder) {
		if o, ok := e.(*modelpkg.MovementOrder); ok {
			out = append(out, o)
		}
	}
	return out
}
