// Package movement resolves one turn of ship movement.
//
// The turn is split into equal sub-steps. Every sub-step first computes all
// steering vectors from the positions at the start of the sub-step and only
// then applies them, so the outcome never depends on the order movers are
// visited in. Arithmetic is decimal throughout; positions are rounded to the
// grid once, at the end of the turn.
package movement

import (
	"sort"

	"github.com/jbradberry/universe/internal/sim/world/logic/fixed"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

const DefaultSubsteps = 1000

type SystemEnv interface {
	SortedLocated() []modelpkg.Located
	SortedMovementOrders() []*modelpkg.MovementOrder
	Lookup(pk int64) (modelpkg.Entity, bool)
	Unregister(e modelpkg.Entity)
}

type SystemInput struct {
	Substeps int
}

type Result struct {
	Movers    int
	Fulfilled int
}

func RunMovementSystem(env SystemEnv, in SystemInput) Result {
	var res Result
	if env == nil {
		return res
	}
	n := int64(in.Substeps)
	if n <= 0 {
		n = DefaultSubsteps
	}

	queues := Queues(env.SortedMovementOrders())

	for _, e := range env.SortedLocated() {
		pos := e.Location()
		pos.XPrev, pos.YPrev = modelpkg.Int(pos.X), modelpkg.Int(pos.Y)
	}

	r := &resolver{n: n, byPK: map[int64]*mover{}}
	for _, q := range queues {
		m, dropped := newMover(env, q, n)
		res.Fulfilled += dropped
		if m == nil {
			continue
		}
		r.movers = append(r.movers, m)
		r.byPK[m.actor.Meta().PK] = m
	}
	res.Movers = len(r.movers)

	for r.step = 0; r.step < n; r.step++ {
		for _, m := range r.movers {
			r.towardGoal(m)
		}
		for _, m := range r.movers {
			r.towardProjection(m)
		}
		for _, m := range r.movers {
			m.x, m.y = m.x.Add(m.dx), m.y.Add(m.dy)
		}
	}

	for _, m := range r.movers {
		pos := m.actor.Location()
		pos.X, pos.Y = m.x.Round().Int64(), m.y.Round().Int64()
	}

	// Goals are compared only after every mover holds its final position.
	var done []*mover
	for _, m := range r.movers {
		if m.reached() {
			done = append(done, m)
		}
	}
	for _, m := range done {
		env.Unregister(m.queue[0])
		m.queue = Resequence(m.queue[1:])
		res.Fulfilled++
	}
	return res
}

// Queues groups orders by actor, ordered by actor pk, each queue sorted by
// seq.
func Queues(orders []*modelpkg.MovementOrder) [][]*modelpkg.MovementOrder {
	byActor := map[int64][]*modelpkg.MovementOrder{}
	var actors []int64
	for _, o := range orders {
		id := o.Order.ActorID
		if _, ok := byActor[id]; !ok {
			actors = append(actors, id)
		}
		byActor[id] = append(byActor[id], o)
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i] < actors[j] })

	out := make([][]*modelpkg.MovementOrder, 0, len(actors))
	for _, id := range actors {
		q := byActor[id]
		sort.SliceStable(q, func(i, j int) bool { return q[i].Order.Seq < q[j].Order.Seq })
		out = append(out, q)
	}
	return out
}

// Resequence renumbers a sorted queue to 0..len-1.
func Resequence(q []*modelpkg.MovementOrder) []*modelpkg.MovementOrder {
	for i, o := range q {
		o.Order.Seq = int64(i)
	}
	return q
}

// newMover prepares the head of q for resolution. Head orders whose target
// no longer exists are removed first; dropped counts them.
func newMover(env SystemEnv, q []*modelpkg.MovementOrder, n int64) (*mover, int) {
	if len(q) == 0 {
		return nil, 0
	}
	actor, ok := located(env, q[0].Order.ActorID)
	if !ok {
		return nil, 0
	}

	dropped := 0
	var target modelpkg.Located
	for len(q) > 0 {
		o := q[0].Order
		if o.TargetID == nil {
			target = nil
			break
		}
		if t, ok := located(env, *o.TargetID); ok {
			target = t
			break
		}
		env.Unregister(q[0])
		q = Resequence(q[1:])
		dropped++
	}
	if len(q) == 0 {
		return nil, dropped
	}

	warp := q[0].Order.Warp
	pos := actor.Location()
	return &mover{
		actor:  actor,
		target: target,
		queue:  q,
		speed:  fixed.Ratio(warp*warp, n),
		x:      fixed.Int(pos.X),
		y:      fixed.Int(pos.Y),
	}, dropped
}

func located(env SystemEnv, pk int64) (modelpkg.Located, bool) {
	e, ok := env.Lookup(pk)
	if !ok {
		return nil, false
	}
	l, ok := e.(modelpkg.Located)
	return l, ok
}
