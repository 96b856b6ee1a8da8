package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/ccsds-mission-sim/ccsds"
	"github.com/signalsfoundry/ccsds-mission-sim/internal/logging"
	"github.com/signalsfoundry/ccsds-mission-sim/params"
)

const (
	// ServiceHousekeeping is the PUS service carrying telemetry reports.
	ServiceHousekeeping = 3
	// SubtypeParameterReport is the housekeeping parameter-report subtype.
	SubtypeParameterReport = 25
)

// Sink receives encoded telemetry packets. Sends are fire-and-forget:
// an error is logged and counted, never retried, and never delays a
// tick.
type Sink interface {
	Send(p []byte) error
}

// Metrics receives generator-level observations. Implementations must
// be safe for concurrent use.
type Metrics interface {
	RecordTick(d time.Duration)
	RecordPacket(sub params.Subsystem)
	RecordSubsystemError(sub params.Subsystem)
	RecordSendError(sub params.Subsystem)
}

// Config bounds the generator's behaviour. Zero fields fall back to the
// documented defaults.
type Config struct {
	// Tick is the telemetry generation period. Default 1s.
	Tick time.Duration
	// APIDBase is the APID of the first subsystem; subsystems use
	// consecutive APIDs in params.Subsystems order. Default 100.
	APIDBase uint16
	// SourceID and DestinationID fill the secondary header.
	SourceID      uint16
	DestinationID uint16
	// DegradedShift moves the sampling band upward by this fraction of
	// the nominal band width while DEGRADED. Default 0.25.
	DegradedShift float64
	// DegradedWidthScale narrows the band to this fraction of the
	// nominal width while DEGRADED. Default 0.5.
	DegradedWidthScale float64
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.APIDBase == 0 {
		c.APIDBase = 100
	}
	if c.DegradedShift == 0 {
		c.DegradedShift = 0.25
	}
	if c.DegradedWidthScale == 0 {
		c.DegradedWidthScale = 0.5
	}
	return c
}

// Generator produces synthetic subsystem telemetry on a fixed tick:
// it samples each subsystem's parameters from the band selected by the
// subsystem's health state, writes them into the parameter store, and
// emits one housekeeping Space Packet per subsystem.
type Generator struct {
	cfg     Config
	store   *params.Store
	health  *HealthTracker
	sink    Sink
	orbit   OrbitModel
	log     logging.Logger
	metrics Metrics
	rng     *rand.Rand
	now     func() time.Time

	mu        sync.Mutex
	seq       map[params.Subsystem]uint16
	reporting map[params.Subsystem]bool

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Option customises Generator construction.
type Option func(*Generator)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetrics attaches an optional metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(g *Generator) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithOrbit overrides the orbit model feeding ADCS position parameters.
func WithOrbit(o OrbitModel) Option {
	return func(g *Generator) {
		if o != nil {
			g.orbit = o
		}
	}
}

// WithGeneratorClock overrides the wall clock (tests).
func WithGeneratorClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New constructs a generator over the given store, health tracker, and
// transport sink.
func New(cfg Config, store *params.Store, health *HealthTracker, sink Sink, opts ...Option) *Generator {
	g := &Generator{
		cfg:       cfg.withDefaults(),
		store:     store,
		health:    health,
		sink:      sink,
		orbit:     NewOrbit("", ""),
		log:       logging.Noop(),
		metrics:   noopMetrics{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() ^ 0x5CC5D5C4F3A1B20D)),
		now:       time.Now,
		seq:       make(map[params.Subsystem]uint16),
		reporting: make(map[params.Subsystem]bool, len(params.Subsystems)),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, sub := range params.Subsystems {
		g.reporting[sub] = true
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// APIDFor returns the APID a subsystem's telemetry is emitted under.
func (g *Generator) APIDFor(sub params.Subsystem) uint16 {
	for i, s := range params.Subsystems {
		if s == sub {
			return g.cfg.APIDBase + uint16(i)
		}
	}
	return g.cfg.APIDBase
}

// SetReporting enables or disables housekeeping packet emission for a
// subsystem (PUS 3/5 and 3/6). Sampling and store updates continue
// either way so the query surface stays fresh.
func (g *Generator) SetReporting(sub params.Subsystem, enabled bool) {
	g.mu.Lock()
	g.reporting[sub] = enabled
	g.mu.Unlock()
}

// ReportingEnabled reports whether a subsystem emits packets.
func (g *Generator) ReportingEnabled(sub params.Subsystem) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reporting[sub]
}

// Start launches the periodic tick loop. The loop exits when ctx is
// cancelled or Stop is called; either way the in-flight tick completes
// before the loop halts.
func (g *Generator) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		go g.run(ctx)
	})
}

func (g *Generator) run(ctx context.Context) {
	defer close(g.done)

	ticker := time.NewTicker(g.cfg.Tick)
	defer ticker.Stop()

	g.log.Info(ctx, "telemetry generator started",
		logging.Duration("tick", g.cfg.Tick),
		logging.Int("apid_base", int(g.cfg.APIDBase)),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case <-ticker.C:
			g.Tick(ctx, g.now().UTC())
		}
	}
}

// Stop halts the tick loop and blocks until the in-flight tick has
// completed, so no half-written parameter batch is left behind. Stop
// is only valid after Start.
func (g *Generator) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
	<-g.done
}

// Tick executes one telemetry generation cycle at the given timestamp.
// A failure in one subsystem is logged and skipped; it never halts the
// remaining subsystems.
func (g *Generator) Tick(ctx context.Context, now time.Time) {
	start := time.Now()
	for _, sub := range params.Subsystems {
		if err := g.tickSubsystem(ctx, sub, now); err != nil {
			g.metrics.RecordSubsystemError(sub)
			g.log.Warn(ctx, "subsystem tick failed",
				logging.String("subsystem", string(sub)),
				logging.Err(err),
			)
		}
	}
	g.metrics.RecordTick(time.Since(start))
}

// housekeepingReport is the JSON payload of a service 3/25 packet.
type housekeepingReport struct {
	Subsystem   params.Subsystem        `json:"subsystem"`
	Health      HealthState             `json:"health"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Parameters  map[string]params.Value `json:"parameters"`
}

func (g *Generator) tickSubsystem(ctx context.Context, sub params.Subsystem, now time.Time) error {
	health := g.health.State(sub)

	var posX, posY, posZ float64
	if sub == params.ADCS {
		posX, posY, posZ = g.orbit.PositionECEF(now)
	}

	values := make(map[string]params.Value)
	for _, id := range g.store.IdentifiersFor(sub) {
		def, ok := g.store.Definition(id)
		if !ok {
			continue
		}
		v := g.sampleValue(def, health, posX, posY, posZ)
		values[id] = v
		if _, err := g.store.Update(id, v, params.Valid, now); err != nil {
			return fmt.Errorf("store update %s: %w", id, err)
		}
	}

	if !g.ReportingEnabled(sub) {
		return nil
	}

	payload, err := json.Marshal(housekeepingReport{
		Subsystem:   sub,
		Health:      health,
		GeneratedAt: now,
		Parameters:  values,
	})
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	g.mu.Lock()
	seq := g.seq[sub]
	g.seq[sub] = ccsds.NextSequenceCount(seq)
	g.mu.Unlock()

	raw, err := ccsds.Encode(
		ccsds.PrimaryHeader{
			Type:          ccsds.Telemetry,
			APID:          g.APIDFor(sub),
			SequenceFlags: ccsds.SeqUnsegmented,
			SequenceCount: seq,
		},
		&ccsds.SecondaryHeader{
			Version:        ccsds.PUSVersion,
			ServiceType:    ServiceHousekeeping,
			ServiceSubtype: SubtypeParameterReport,
			DestinationID:  g.cfg.DestinationID,
			SourceID:       g.cfg.SourceID,
			Time:           ccsds.SecondsOfDay(now),
		},
		payload,
	)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}

	if err := g.sink.Send(raw); err != nil {
		// Best-effort datagram semantics: log, count, move on.
		g.metrics.RecordSendError(sub)
		g.log.Warn(ctx, "telemetry send failed",
			logging.String("subsystem", string(sub)),
			logging.Err(err),
		)
		return nil
	}
	g.metrics.RecordPacket(sub)
	return nil
}

func (g *Generator) sampleValue(def params.Definition, health HealthState, posX, posY, posZ float64) params.Value {
	if def.Computed {
		switch def.Name {
		case "MEAS_POSITION_X":
			return params.Number(posX)
		case "MEAS_POSITION_Y":
			return params.Number(posY)
		case "MEAS_POSITION_Z":
			return params.Number(posZ)
		default:
			// Health-status mirrors.
			return params.Enumerated(string(health))
		}
	}

	if def.Kind == params.KindEnumerated {
		if health == HealthSafe {
			return def.Safe
		}
		return params.Enumerated(def.Modes[g.rng.Intn(len(def.Modes))])
	}

	if health == HealthSafe {
		return def.Safe
	}
	band := g.shapeBand(def.Band, health)
	v := band.Lo + g.rng.Float64()*band.Width()
	if def.Integer {
		v = math.Round(v)
	}
	return params.Number(v)
}

// shapeBand narrows and shifts the nominal band while a subsystem is
// DEGRADED, simulating drift toward the upper range.
func (g *Generator) shapeBand(b params.Band, health HealthState) params.Band {
	if health != HealthDegraded {
		return b
	}
	w := b.Width()
	lo := b.Lo + g.cfg.DegradedShift*w
	return params.Band{Lo: lo, Hi: lo + w*g.cfg.DegradedWidthScale}
}

type noopMetrics struct{}

func (noopMetrics) RecordTick(time.Duration)              {}
func (noopMetrics) RecordPacket(params.Subsystem)         {}
func (noopMetrics) RecordSubsystemError(params.Subsystem) {}
func (noopMetrics) RecordSendError(params.Subsystem)      {}
