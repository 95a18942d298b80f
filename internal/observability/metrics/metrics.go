// Package metrics holds the Prometheus collectors a turn reports into.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	CommandApplied  = "applied"
	CommandDropped  = "dropped"
	CommandRejected = "rejected"
)

// TurnCollector bundles the turn metrics. A nil collector records nothing.
type TurnCollector struct {
	gatherer prometheus.Gatherer

	Turns         prometheus.Counter
	Commands      *prometheus.CounterVec
	Entities      *prometheus.GaugeVec
	StageDuration *prometheus.HistogramVec
	Movers        prometheus.Gauge
	Fulfilled     prometheus.Counter
	Mined         *prometheus.CounterVec
	Depopulated   prometheus.Counter
}

// NewTurnCollector registers the turn metrics against reg, defaulting to the
// global registry when nil.
func NewTurnCollector(reg prometheus.Registerer) (*TurnCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	turns, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "universe_turns_total",
		Help: "Turns generated.",
	}), "universe_turns_total")
	if err != nil {
		return nil, err
	}
	commands, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "universe_commands_total",
		Help: "Commands seen, labeled by outcome.",
	}, []string{"result"}), "universe_commands_total")
	if err != nil {
		return nil, err
	}
	entities, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "universe_entities",
		Help: "Entities in the most recently generated snapshot, labeled by type.",
	}, []string{"type"}), "universe_entities")
	if err != nil {
		return nil, err
	}
	stage, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "universe_stage_duration_seconds",
		Help:    "Turn stage latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"stage"}), "universe_stage_duration_seconds")
	if err != nil {
		return nil, err
	}
	movers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "universe_movers",
		Help: "Ships that executed a movement order in the last turn.",
	}), "universe_movers")
	if err != nil {
		return nil, err
	}
	fulfilled, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "universe_orders_fulfilled_total",
		Help: "Movement orders removed after reaching their goal.",
	}), "universe_orders_fulfilled_total")
	if err != nil {
		return nil, err
	}
	mined, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "universe_minerals_mined_total",
		Help: "Minerals extracted, labeled by mineral.",
	}, []string{"mineral"}), "universe_minerals_mined_total")
	if err != nil {
		return nil, err
	}
	depopulated, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "universe_planets_depopulated_total",
		Help: "Planets whose population died out.",
	}), "universe_planets_depopulated_total")
	if err != nil {
		return nil, err
	}

	return &TurnCollector{
		gatherer:      gatherer,
		Turns:         turns,
		Commands:      commands,
		Entities:      entities,
		StageDuration: stage,
		Movers:        movers,
		Fulfilled:     fulfilled,
		Mined:         mined,
		Depopulated:   depopulated,
	}, nil
}

func (c *TurnCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *TurnCollector) AddCommands(result string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Commands.WithLabelValues(result).Add(float64(n))
}

func (c *TurnCollector) ObserveMovement(movers, fulfilled int) {
	if c == nil {
		return
	}
	c.Movers.Set(float64(movers))
	c.Fulfilled.Add(float64(fulfilled))
}

func (c *TurnCollector) AddMined(ironium, boranium, germanium int64) {
	if c == nil {
		return
	}
	c.Mined.WithLabelValues("ironium").Add(float64(ironium))
	c.Mined.WithLabelValues("boranium").Add(float64(boranium))
	c.Mined.WithLabelValues("germanium").Add(float64(germanium))
}

func (c *TurnCollector) AddDepopulated(n int) {
	if c == nil {
		return
	}
	c.Depopulated.Add(float64(n))
}

// SetEntities replaces the per-type entity counts.
func (c *TurnCollector) SetEntities(counts map[string]int) {
	if c == nil {
		return
	}
	c.Entities.Reset()
	for typ, n := range counts {
		c.Entities.WithLabelValues(typ).Set(float64(n))
	}
}

func (c *TurnCollector) TurnDone() {
	if c == nil {
		return
	}
	c.Turns.Inc()
}

// WriteTextfile writes every metric of the collector's registry in the
// node_exporter textfile format.
func (c *TurnCollector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
