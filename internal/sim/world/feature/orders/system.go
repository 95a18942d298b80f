// Package orders merges a turn's commands into the actors' movement order
// queues.
package orders

import (
	"sort"

	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// Drop reasons.
const (
	ReasonUnknownActor = "unknown_actor"
	ReasonNotShip      = "not_ship"
	ReasonNotOwner     = "not_owner"
	ReasonSeqInUse     = "seq_in_use"
	ReasonNoSuchOrder  = "no_such_order"
	ReasonInvalid      = "invalid"
	ReasonBadAction    = "bad_action"
)

type SystemEnv interface {
	Lookup(pk int64) (modelpkg.Entity, bool)
	SortedMovementOrders() []*modelpkg.MovementOrder
	RegisterRecord(r schema.Record) (modelpkg.Entity, error)
	Unregister(e modelpkg.Entity)
	Validate(r schema.Record) error
}

type DropFn func(species int64, cmd protocol.Command, reason string, err error)

type SystemInput struct {
	Commands protocol.Batch
	OnDrop   DropFn
}

type Result struct {
	Applied int
	Dropped int
}

type queues map[int64]map[int64]*modelpkg.MovementOrder

func (q queues) get(actor, seq int64) (*modelpkg.MovementOrder, bool) {
	o, ok := q[actor][seq]
	return o, ok
}

func (q queues) put(o *modelpkg.MovementOrder) {
	m, ok := q[o.Order.ActorID]
	if !ok {
		m = map[int64]*modelpkg.MovementOrder{}
		q[o.Order.ActorID] = m
	}
	m[o.Order.Seq] = o
}

type stage struct {
	env    SystemEnv
	queues queues
}

// RunUpdateSystem applies commands species by species in ascending pk
// order, each species' commands in the order given. Commands that cannot be
// applied are skipped and reported through in.OnDrop. Afterwards every
// touched queue is renumbered 0..n-1 by existing seq.
func RunUpdateSystem(env SystemEnv, in SystemInput) Result {
	var res Result
	if env == nil {
		return res
	}
	st := &stage{env: env, queues: queues{}}
	for _, o := range env.SortedMovementOrders() {
		st.queues.put(o)
	}

	for _, species := range in.Commands.Species() {
		for _, cmd := range in.Commands[species] {
			reason, err := st.apply(species, cmd)
			if reason != "" {
				res.Dropped++
				if in.OnDrop != nil {
					in.OnDrop(species, cmd, reason, err)
				}
				continue
			}
			res.Applied++
		}
	}

	st.resequence()
	return res
}

func (st *stage) apply(species int64, cmd protocol.Command) (string, error) {
	if reason := st.authorize(species, cmd.ActorID); reason != "" {
		return reason, nil
	}
	switch cmd.Action {
	case protocol.ActionCreate:
		return st.create(cmd)
	case protocol.ActionUpdate:
		return st.update(cmd)
	case protocol.ActionReorder:
		return st.reorder(cmd)
	case protocol.ActionDelete:
		return st.delete(cmd)
	}
	return ReasonBadAction, nil
}

func (st *stage) authorize(species, actorID int64) string {
	e, ok := st.env.Lookup(actorID)
	if !ok {
		return ReasonUnknownActor
	}
	ship, ok := e.(*modelpkg.Ship)
	if !ok {
		return ReasonNotShip
	}
	owner := ship.Ownership.OwnerID
	if owner == nil || *owner != species {
		return ReasonNotOwner
	}
	return ""
}

func (st *stage) create(cmd protocol.Command) (string, error) {
	if cmd.Seq == nil || cmd.Warp == nil {
		return ReasonInvalid, nil
	}
	if _, ok := st.queues.get(cmd.ActorID, *cmd.Seq); ok {
		return ReasonSeqInUse, nil
	}
	r := schema.Record{
		"type":     components.TypeMovementOrder,
		"actor_id": cmd.ActorID,
		"seq":      *cmd.Seq,
		"warp":     *cmd.Warp,
	}
	putGoal(r, cmd)
	e, err := st.env.RegisterRecord(r)
	if err != nil {
		return ReasonInvalid, err
	}
	st.queues.put(e.(*modelpkg.MovementOrder))
	return "", nil
}

// update rewrites the order's warp and goal. A new goal of one kind clears
// the other kind.
func (st *stage) update(cmd protocol.Command) (string, error) {
	if cmd.Seq == nil {
		return ReasonInvalid, nil
	}
	o, ok := st.queues.get(cmd.ActorID, *cmd.Seq)
	if !ok {
		return ReasonNoSuchOrder, nil
	}
	r := o.Record()
	if cmd.Warp != nil {
		r["warp"] = *cmd.Warp
	}
	if cmd.TargetID != nil {
		delete(r, "x_t")
		delete(r, "y_t")
	}
	if cmd.XT != nil || cmd.YT != nil {
		delete(r, "target_id")
	}
	putGoal(r, cmd)
	if err := st.env.Validate(r); err != nil {
		return ReasonInvalid, err
	}
	next, err := modelpkg.Decode(r)
	if err != nil {
		return ReasonInvalid, err
	}
	o.Order = next.(*modelpkg.MovementOrder).Order
	return "", nil
}

func (st *stage) reorder(cmd protocol.Command) (string, error) {
	if cmd.Seq1 == nil || cmd.Seq2 == nil {
		return ReasonInvalid, nil
	}
	o1, ok1 := st.queues.get(cmd.ActorID, *cmd.Seq1)
	o2, ok2 := st.queues.get(cmd.ActorID, *cmd.Seq2)
	if !ok1 || !ok2 {
		return ReasonNoSuchOrder, nil
	}
	o1.Order.Seq, o2.Order.Seq = o2.Order.Seq, o1.Order.Seq
	st.queues.put(o1)
	st.queues.put(o2)
	return "", nil
}

func (st *stage) delete(cmd protocol.Command) (string, error) {
	if cmd.Seq == nil {
		return ReasonInvalid, nil
	}
	o, ok := st.queues.get(cmd.ActorID, *cmd.Seq)
	if !ok {
		return ReasonNoSuchOrder, nil
	}
	st.env.Unregister(o)
	delete(st.queues[cmd.ActorID], *cmd.Seq)
	return "", nil
}

func (st *stage) resequence() {
	for _, m := range st.queues {
		q := make([]*modelpkg.MovementOrder, 0, len(m))
		for _, o := range m {
			q = append(q, o)
		}
		sort.Slice(q, func(i, j int) bool { return q[i].Order.Seq < q[j].Order.Seq })
		for i, o := range q {
			o.Order.Seq = int64(i)
		}
	}
}

func putGoal(r schema.Record, cmd protocol.Command) {
	if cmd.TargetID != nil {
		r["target_id"] = *cmd.TargetID
	}
	if cmd.XT != nil {
		r["x_t"] = *cmd.XT
	}
	if cmd.YT != nil {
		r["y_t"] = *cmd.YT
	}
}
