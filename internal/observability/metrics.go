package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/ccsds-mission-sim/params"
)

// SimCollector bundles the simulator's Prometheus metrics and adapts
// them to the recorder interfaces of the generator, the parameter
// store, and the telecommand handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	PacketsSent     *prometheus.CounterVec
	SendErrors      *prometheus.CounterVec
	SubsystemErrors *prometheus.CounterVec
	TickDurations   prometheus.Histogram

	ParameterWrites *prometheus.CounterVec
	StaleWrites     *prometheus.CounterVec

	Commands *prometheus.CounterVec
}

// NewSimCollector registers the simulator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	packets, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_packets_sent_total",
		Help: "Total number of telemetry Space Packets handed to the downlink, labeled by subsystem.",
	}, []string{"subsystem"}), "sim_packets_sent_total")
	if err != nil {
		return nil, err
	}

	sendErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_send_errors_total",
		Help: "Total number of downlink send failures, labeled by subsystem.",
	}, []string{"subsystem"}), "sim_send_errors_total")
	if err != nil {
		return nil, err
	}

	subsystemErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_subsystem_errors_total",
		Help: "Total number of per-subsystem tick failures (sampling or encoding).",
	}, []string{"subsystem"}), "sim_subsystem_errors_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Telemetry generation tick latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	writes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_parameter_writes_total",
		Help: "Total number of applied parameter store writes, labeled by subsystem.",
	}, []string{"subsystem"}), "sim_parameter_writes_total")
	if err != nil {
		return nil, err
	}

	staleWrites, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_parameter_stale_writes_total",
		Help: "Total number of parameter writes ignored under the monotonic timestamp rule.",
	}, []string{"subsystem"}), "sim_parameter_stale_writes_total")
	if err != nil {
		return nil, err
	}

	commands, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_commands_total",
		Help: "Total number of handled telecommands, labeled by PUS service, subtype, and outcome.",
	}, []string{"service", "subtype", "status"}), "sim_commands_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		PacketsSent:     packets,
		SendErrors:      sendErrors,
		SubsystemErrors: subsystemErrors,
		TickDurations:   ticks,
		ParameterWrites: writes,
		StaleWrites:     staleWrites,
		Commands:        commands,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordTick satisfies the generator's metrics interface.
func (c *SimCollector) RecordTick(d time.Duration) {
	if c == nil || c.TickDurations == nil {
		return
	}
	c.TickDurations.Observe(d.Seconds())
}

// RecordPacket counts one packet handed to the downlink.
func (c *SimCollector) RecordPacket(sub params.Subsystem) {
	if c == nil || c.PacketsSent == nil {
		return
	}
	c.PacketsSent.WithLabelValues(string(sub)).Inc()
}

// RecordSubsystemError counts one failed subsystem tick.
func (c *SimCollector) RecordSubsystemError(sub params.Subsystem) {
	if c == nil || c.SubsystemErrors == nil {
		return
	}
	c.SubsystemErrors.WithLabelValues(string(sub)).Inc()
}

// RecordSendError counts one downlink send failure.
func (c *SimCollector) RecordSendError(sub params.Subsystem) {
	if c == nil || c.SendErrors == nil {
		return
	}
	c.SendErrors.WithLabelValues(string(sub)).Inc()
}

// RecordWrite satisfies the parameter store's metrics interface.
func (c *SimCollector) RecordWrite(sub params.Subsystem) {
	if c == nil || c.ParameterWrites == nil {
		return
	}
	c.ParameterWrites.WithLabelValues(string(sub)).Inc()
}

// RecordStaleWrite counts one write ignored by the monotonic rule.
func (c *SimCollector) RecordStaleWrite(sub params.Subsystem) {
	if c == nil || c.StaleWrites == nil {
		return
	}
	c.StaleWrites.WithLabelValues(string(sub)).Inc()
}

// RecordCommand satisfies the telecommand handler's metrics interface.
func (c *SimCollector) RecordCommand(service, subtype uint8, status string) {
	if c == nil || c.Commands == nil {
		return
	}
	c.Commands.WithLabelValues(
		strconv.Itoa(int(service)),
		strconv.Itoa(int(subtype)),
		status,
	).Inc()
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

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
