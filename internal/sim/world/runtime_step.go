package world

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	obslog "github.com/jbradberry/universe/internal/observability/log"
	"github.com/jbradberry/universe/internal/observability/metrics"
	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/world/feature/economy"
	"github.com/jbradberry/universe/internal/sim/world/feature/movement"
	"github.com/jbradberry/universe/internal/sim/world/feature/orders"
)

// Stage names, in execution order.
const (
	StageImport   = "import"
	StageUpdate   = "update"
	StageMovement = "movement"
	StageMining   = "mining"
	StageGrowth   = "population_growth"
	StageExport   = "export"
)

// Generate advances snap by one turn under cmds. The snapshot is imported
// whole or not at all; once it is in, the stages cannot fail.
func (w *World) Generate(ctx context.Context, snap protocol.Snapshot, cmds protocol.Batch) (protocol.Snapshot, Report, error) {
	ctx, span := w.tracer.Start(ctx, "turn.generate", trace.WithAttributes(
		attribute.Int64("turn", snap.Turn),
		attribute.Int("entities", len(snap.Entities)),
		attribute.Int("commands", cmds.Len()),
	))
	defer span.End()

	rep := Report{Turn: snap.Turn + 1}
	fail := func(err error) (protocol.Snapshot, Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return protocol.Snapshot{}, rep, err
	}

	if err := w.runStage(ctx, &rep, StageImport, func() ([]obslog.Field, error) {
		if err := w.Import(snap); err != nil {
			return nil, err
		}
		return []obslog.Field{obslog.Int("entities", w.Len())}, nil
	}); err != nil {
		return fail(err)
	}

	_ = w.runStage(ctx, &rep, StageUpdate, func() ([]obslog.Field, error) {
		rep.Update = orders.RunUpdateSystem(w, orders.SystemInput{Commands: cmds, OnDrop: w.logDrop})
		w.metrics.AddCommands(metrics.CommandApplied, rep.Update.Applied)
		w.metrics.AddCommands(metrics.CommandDropped, rep.Update.Dropped)
		return []obslog.Field{obslog.Int("applied", rep.Update.Applied), obslog.Int("dropped", rep.Update.Dropped)}, nil
	})

	_ = w.runStage(ctx, &rep, StageMovement, func() ([]obslog.Field, error) {
		rep.Movement = movement.RunMovementSystem(w, movement.SystemInput{Substeps: w.cfg.Substeps})
		w.metrics.ObserveMovement(rep.Movement.Movers, rep.Movement.Fulfilled)
		return []obslog.Field{obslog.Int("movers", rep.Movement.Movers), obslog.Int("fulfilled", rep.Movement.Fulfilled)}, nil
	})

	econ := economy.SystemInput{Defaults: w.cfg.Production}
	_ = w.runStage(ctx, &rep, StageMining, func() ([]obslog.Field, error) {
		rep.Mining = economy.RunMiningSystem(w, econ)
		y := rep.Mining.Total
		w.metrics.AddMined(y.Ironium, y.Boranium, y.Germanium)
		return []obslog.Field{
			obslog.Int("planets", rep.Mining.Planets),
			obslog.Int64("ironium", y.Ironium),
			obslog.Int64("boranium", y.Boranium),
			obslog.Int64("germanium", y.Germanium),
		}, nil
	})

	_ = w.runStage(ctx, &rep, StageGrowth, func() ([]obslog.Field, error) {
		rep.Growth = economy.RunPopulationGrowthSystem(w, econ)
		w.metrics.AddDepopulated(rep.Growth.Depopulated)
		return []obslog.Field{obslog.Int("planets", rep.Growth.Planets), obslog.Int("depopulated", rep.Growth.Depopulated)}, nil
	})

	w.turn = snap.Turn + 1

	var out protocol.Snapshot
	if err := w.runStage(ctx, &rep, StageExport, func() ([]obslog.Field, error) {
		var err error
		if out, err = w.Export(); err != nil {
			return nil, err
		}
		if rep.Digest, err = w.stateDigest(); err != nil {
			return nil, err
		}
		rep.Entities = len(out.Entities)
		return []obslog.Field{obslog.Int("entities", rep.Entities), obslog.String("digest", rep.Digest)}, nil
	}); err != nil {
		return fail(err)
	}

	w.metrics.SetEntities(w.typeCounts())
	w.metrics.TurnDone()
	span.SetAttributes(attribute.String("digest", rep.Digest))

	if w.turnLogger != nil {
		entry := TurnLogEntry{
			Turn:      rep.Turn,
			Digest:    rep.Digest,
			Entities:  rep.Entities,
			Applied:   rep.Update.Applied,
			Dropped:   rep.Update.Dropped,
			Fulfilled: rep.Movement.Fulfilled,
			Commands:  cmds,
		}
		if err := w.turnLogger.WriteTurn(entry); err != nil {
			w.log.Warn("turn log write failed", obslog.Int64("turn", rep.Turn), obslog.Err(err))
		}
	}
	return out, rep, nil
}

func (w *World) runStage(ctx context.Context, rep *Report, name string, fn func() ([]obslog.Field, error)) error {
	_, span := w.tracer.Start(ctx, "turn."+name)
	defer span.End()

	start := time.Now()
	fields, err := fn()
	took := time.Since(start)

	rep.Stages = append(rep.Stages, StageTiming{Name: name, Duration: took})
	w.metrics.ObserveStage(name, took)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.log.Warn("stage failed", obslog.String("stage", name), obslog.Int64("turn", rep.Turn), obslog.Err(err))
		return err
	}
	w.log.Info("stage", append([]obslog.Field{
		obslog.String("stage", name),
		obslog.Int64("turn", rep.Turn),
		obslog.Duration("took", took),
	}, fields...)...)
	return nil
}

func (w *World) logDrop(species int64, cmd protocol.Command, reason string, err error) {
	if !w.log.Enabled(obslog.LevelDebug) {
		return
	}
	fields := []obslog.Field{
		obslog.Int64("species", species),
		obslog.String("action", cmd.Action),
		obslog.Int64("actor_id", cmd.ActorID),
		obslog.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, obslog.Err(err))
	}
	w.log.Debug("command dropped", fields...)
}
