package movement

import (
	"github.com/jbradberry/universe/internal/sim/world/logic/fixed"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

type mover struct {
	actor  modelpkg.Located
	target modelpkg.Located
	queue  []*modelpkg.MovementOrder

	speed  fixed.Dec
	x, y   fixed.Dec
	dx, dy fixed.Dec
	proj   projection
}

// projection is the endpoint a mover would reach if it held its current
// vector for the rest of the turn. Once it changes between sub-steps it is
// unstable until the turn ends.
type projection struct {
	set      bool
	unstable bool
	x, y     fixed.Dec
}

func (p *projection) observe(x, y fixed.Dec) {
	if !p.set {
		p.set, p.x, p.y = true, x, y
		return
	}
	if !p.x.Equal(x) || !p.y.Equal(y) {
		p.unstable = true
	}
}

func (p projection) stable() bool { return p.set && !p.unstable }

type resolver struct {
	n      int64
	step   int64
	movers []*mover
	byPK   map[int64]*mover
}

// position is where e stands at the start of the current sub-step.
func (r *resolver) position(e modelpkg.Located) (fixed.Dec, fixed.Dec) {
	if m, ok := r.byPK[e.Meta().PK]; ok {
		return m.x, m.y
	}
	pos := e.Location()
	return fixed.Int(pos.X), fixed.Int(pos.Y)
}

// goal aims for the grid cell the goal currently lies in.
func (r *resolver) goal(m *mover) (fixed.Dec, fixed.Dec) {
	if m.target != nil {
		x, y := r.position(m.target)
		return x.Round(), y.Round()
	}
	o := m.queue[0].Order
	return fixed.Int(*o.XT), fixed.Int(*o.YT)
}

func (r *resolver) towardGoal(m *mover) {
	gx, gy := r.goal(m)
	m.aim(gx.Sub(m.x), gy.Sub(m.y))

	remaining := fixed.Int(r.n - r.step)
	m.proj.observe(
		m.x.Add(remaining.Mul(m.dx)).Round(),
		m.y.Add(remaining.Mul(m.dy)).Round(),
	)
}

// towardProjection re-aims a pursuer at its target's endpoint when that
// endpoint has held steady so far this turn.
func (r *resolver) towardProjection(m *mover) {
	if m.target == nil {
		return
	}
	t, ok := r.byPK[m.target.Meta().PK]
	if !ok || !t.proj.stable() {
		return
	}
	m.aim(t.proj.x.Sub(m.x), t.proj.y.Sub(m.y))
}

// aim sets the sub-step vector along (dx, dy). A goal within one sub-step
// of travel is taken in full.
func (m *mover) aim(dx, dy fixed.Dec) {
	if m.speed.Sign() == 0 {
		m.dx, m.dy = fixed.Zero(), fixed.Zero()
		return
	}
	d := dx.Mul(dx).Add(dy.Mul(dy)).Sqrt()
	if d.Round().Cmp(m.speed) <= 0 {
		m.dx, m.dy = dx, dy
		return
	}
	m.dx = m.speed.Mul(dx).Quo(d)
	m.dy = m.speed.Mul(dy).Quo(d)
}

func (m *mover) reached() bool {
	pos := m.actor.Location()
	if m.target != nil {
		t := m.target.Location()
		return pos.X == t.X && pos.Y == t.Y
	}
	o := m.queue[0].Order
	return pos.X == *o.XT && pos.Y == *o.YT
}
