// Command turn generates the next turn of a universe from a snapshot file
// and a command batch file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	obslog "github.com/jbradberry/universe/internal/observability/log"
	"github.com/jbradberry/universe/internal/observability/metrics"
	"github.com/jbradberry/universe/internal/persistence/archive"
	"github.com/jbradberry/universe/internal/persistence/indexdb"
	persistlog "github.com/jbradberry/universe/internal/persistence/log"
	"github.com/jbradberry/universe/internal/persistence/snapshot"
	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/schema"
	"github.com/jbradberry/universe/internal/sim/tuning"
	"github.com/jbradberry/universe/internal/sim/world"
)

type options struct {
	snapshot        string
	commands        string
	out             string
	config          string
	logDir          string
	indexDB         string
	metricsTextfile string
	trace           bool
}

func main() {
	var opts options
	flag.StringVar(&opts.snapshot, "snapshot", "", "input snapshot (.json or .json.zst)")
	flag.StringVar(&opts.commands, "commands", "", "command batch (.json or .json.zst, optional)")
	flag.StringVar(&opts.out, "out", "", "output snapshot path (default: stdout as JSON)")
	flag.StringVar(&opts.config, "config", "", "path to tuning.yaml (optional)")
	flag.StringVar(&opts.logDir, "log-dir", "", "directory for the compressed turn log (optional)")
	flag.StringVar(&opts.indexDB, "index-db", "", "sqlite turn index path (optional)")
	flag.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this textfile (optional)")
	flag.BoolVar(&opts.trace, "trace", false, "print stage spans to stderr")
	flag.Parse()

	if opts.snapshot == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(os.Stderr, "invalid snapshot:", ve.Message)
		} else {
			fmt.Fprintln(os.Stderr, "turn:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	tune, err := tuning.Load(opts.config)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if tune.ProtocolVersion != "" && tune.ProtocolVersion != protocol.Version {
		return fmt.Errorf("tuning targets protocol %s, this build speaks %s", tune.ProtocolVersion, protocol.Version)
	}
	level, err := obslog.ParseLevel(tune.Log.Level)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := obslog.New(level).With(obslog.String("run_id", runID))
	defer func() { _ = logger.Sync() }()

	var (
		snap     protocol.Snapshot
		cmds     protocol.Batch
		rejected int
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = snapshot.ReadSnapshot(opts.snapshot)
		return err
	})
	g.Go(func() error {
		var err error
		cmds, rejected, err = snapshot.ReadCommands(opts.commands)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if rejected > 0 {
		logger.Warn("commands rejected by schema", obslog.Int("rejected", rejected))
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewTurnCollector(reg)
	if err != nil {
		return err
	}
	collector.AddCommands(metrics.CommandRejected, rejected)

	w := world.New(world.ConfigFromTuning(tune))
	w.SetLogger(logger)
	w.SetMetrics(collector)

	if opts.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		w.SetTracer(tp.Tracer("github.com/jbradberry/universe/cmd/turn"))
	}

	if opts.logDir != "" {
		tl := persistlog.NewTurnLogger(opts.logDir, time.Duration(tune.TurnLog.RotateHours)*time.Hour)
		defer func() { _ = tl.Close() }()
		w.SetTurnLogger(tl)
	}

	var idx *indexdb.SQLiteIndex
	var prior indexdb.TurnRow
	var hasPrior bool
	if opts.indexDB != "" {
		idx, err = indexdb.OpenSQLite(opts.indexDB)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() { _ = idx.Close() }()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Warn("index tuning upsert failed", obslog.Err(err))
		}
		prior, hasPrior, err = idx.LookupTurn(ctx, snap.Turn+1)
		if err != nil {
			logger.Warn("index lookup failed", obslog.Err(err))
		}
	}

	out, rep, err := w.Generate(ctx, snap, cmds)
	if err != nil {
		return err
	}

	if err := writeOutput(opts.out, out); err != nil {
		return err
	}

	if hasPrior && prior.Digest != rep.Digest {
		logger.Warn("digest differs from indexed turn",
			obslog.Int64("turn", rep.Turn),
			obslog.String("indexed_run_id", prior.RunID),
			obslog.String("indexed_digest", prior.Digest),
			obslog.String("digest", rep.Digest),
		)
	}
	idx.RecordTurn(indexdb.TurnRow{
		Turn:      rep.Turn,
		RunID:     runID,
		Digest:    rep.Digest,
		Entities:  rep.Entities,
		Applied:   rep.Update.Applied,
		Dropped:   rep.Update.Dropped,
		Fulfilled: rep.Movement.Fulfilled,
		Path:      absPath(opts.out),
	})

	if opts.out != "" {
		archived, ok, err := archive.ArchiveTurnSnapshot(filepath.Dir(opts.out), opts.out, tune.Archive.EveryTurns, archive.TurnArchiveMeta{
			Turn:     rep.Turn,
			RunID:    runID,
			Digest:   rep.Digest,
			Entities: rep.Entities,
		})
		if err != nil {
			logger.Warn("archive failed", obslog.Err(err))
		} else if ok {
			logger.Info("snapshot archived", obslog.String("path", archived))
		}
	}

	if opts.metricsTextfile != "" {
		if err := collector.WriteTextfile(opts.metricsTextfile); err != nil {
			logger.Warn("metrics textfile", obslog.Err(err))
		}
	}

	logger.Info("turn generated",
		obslog.Int64("turn", rep.Turn),
		obslog.String("digest", rep.Digest),
		obslog.Int("entities", rep.Entities),
		obslog.Int("applied", rep.Update.Applied),
		obslog.Int("dropped", rep.Update.Dropped),
		obslog.Int("rejected", rejected),
	)
	return nil
}

func writeOutput(path string, snap protocol.Snapshot) error {
	if path == "" {
		b, err := protocol.EncodeSnapshot(snap)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func absPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return "-"
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
