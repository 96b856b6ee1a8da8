// Package mo implements the mission-operations surface of the
// simulator: the telecommand handler that applies uplinked Space
// Packets to the simulation state, and the parameter query service.
package mo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ccsds-mission-sim/ccsds"
	"github.com/signalsfoundry/ccsds-mission-sim/internal/logging"
	"github.com/signalsfoundry/ccsds-mission-sim/params"
	"github.com/signalsfoundry/ccsds-mission-sim/sim"
)

const (
	// ServiceTest is the PUS connection-test service.
	ServiceTest = 17
	// SubtypeConnectionTest is the are-you-alive subtype.
	SubtypeConnectionTest = 1
	// SubtypeEnableReporting and SubtypeDisableReporting toggle periodic
	// housekeeping emission (service 3).
	SubtypeEnableReporting  = 5
	SubtypeDisableReporting = 6
)

// Command execution statuses.
type Status string

const (
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusRejected     Status = "REJECTED"
)

// Test modes accepted by the 17/1 connection test.
const (
	TestModeDiagnostic = "DIAGNOSTIC"
	TestModeSafe       = "SAFE"
	TestModeNominal    = "NOMINAL"
	TestModeFault      = "FAULT"
)

// Result reports the outcome of one telecommand.
type Result struct {
	CommandID      string
	Status         Status
	ServiceType    uint8
	ServiceSubtype uint8
	Message        string
	Timestamp      time.Time
}

// ServiceKey identifies a dispatch-table entry.
type ServiceKey struct {
	Type    uint8
	Subtype uint8
}

// Command is a decoded telecommand handed to a service function.
type Command struct {
	Packet     *ccsds.Packet
	CommandID  string
	Parameters map[string]string
}

// CommandFunc executes one service. It must validate all parameters
// before mutating any state, so a rejected command leaves the
// simulation untouched.
type CommandFunc func(ctx context.Context, cmd Command) (Result, error)

// HealthController is the health-state surface the handler drives.
// *sim.HealthTracker satisfies it.
type HealthController interface {
	Override(sub params.Subsystem, state sim.HealthState, d time.Duration)
	Clear(sub params.Subsystem)
}

// ReportingController toggles periodic housekeeping emission.
// *sim.Generator satisfies it.
type ReportingController interface {
	SetReporting(sub params.Subsystem, enabled bool)
}

// HandlerMetrics counts command outcomes by service and status.
type HandlerMetrics interface {
	RecordCommand(service, subtype uint8, status string)
}

type noopHandlerMetrics struct{}

func (noopHandlerMetrics) RecordCommand(uint8, uint8, string) {}

// HandlerConfig bounds the built-in services.
type HandlerConfig struct {
	// DiagnosticDuration bounds the DEGRADED override applied by a
	// DIAGNOSTIC connection test. Default 60s.
	DiagnosticDuration time.Duration
}

func (c HandlerConfig) withDefaults() HandlerConfig {
	if c.DiagnosticDuration <= 0 {
		c.DiagnosticDuration = time.Minute
	}
	return c
}

// Handler decodes uplinked telecommand packets and dispatches them to
// service functions. It holds no mutable state beyond the dispatch
// table, which is fixed after construction; all effects go through the
// store, the health tracker, and the reporting controller.
type Handler struct {
	cfg       HandlerConfig
	store     *params.Store
	health    HealthController
	reporting ReportingController
	log       logging.Logger
	metrics   HandlerMetrics
	now       func() time.Time
	table     map[ServiceKey]CommandFunc
}

// HandlerOption customises Handler construction.
type HandlerOption func(*Handler)

// WithHandlerLogger attaches a structured logger.
func WithHandlerLogger(log logging.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHandlerMetrics attaches an optional command counter.
func WithHandlerMetrics(m HandlerMetrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithHandlerClock overrides the wall clock (tests).
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler builds a handler with the built-in services registered:
// 17/1 connection test and 3/5, 3/6 reporting control.
func NewHandler(cfg HandlerConfig, store *params.Store, health HealthController, reporting ReportingController, opts ...HandlerOption) *Handler {
	h := &Handler{
		cfg:       cfg.withDefaults(),
		store:     store,
		health:    health,
		reporting: reporting,
		log:       logging.Noop(),
		metrics:   noopHandlerMetrics{},
		now:       time.Now,
		table:     make(map[ServiceKey]CommandFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.table[ServiceKey{ServiceTest, SubtypeConnectionTest}] = h.connectionTest
	h.table[ServiceKey{sim.ServiceHousekeeping, SubtypeEnableReporting}] = h.setReporting(true)
	h.table[ServiceKey{sim.ServiceHousekeeping, SubtypeDisableReporting}] = h.setReporting(false)
	return h
}

// Register adds a service function for a (serviceType, serviceSubtype)
// pair. Registering over an existing pair, built-ins included, fails.
func (h *Handler) Register(key ServiceKey, fn CommandFunc) error {
	if _, ok := h.table[key]; ok {
		return fmt.Errorf("%w: %d/%d", ErrDuplicateService, key.Type, key.Subtype)
	}
	h.table[key] = fn
	return nil
}

// commandEnvelope is the JSON payload of an uplinked telecommand. An
// empty payload is a valid envelope with no parameters.
type commandEnvelope struct {
	CommandID  string            `json:"commandId"`
	Parameters map[string]string `json:"parameters"`
}

// Handle decodes one raw telecommand packet and executes it. A decode
// failure or an unknown service rejects the command with zero state
// change; service functions validate before mutating, so the same
// holds for rejected parameters.
func (h *Handler) Handle(ctx context.Context, raw []byte) (Result, error) {
	ctx, span := otel.Tracer("mo").Start(ctx, "Telecommand.Handle")
	defer span.End()

	pkt, err := ccsds.Decode(raw)
	if err != nil {
		h.metrics.RecordCommand(0, 0, "malformed")
		return h.reject(ctx, span, Result{Status: StatusRejected, Timestamp: h.now()}, err)
	}
	if pkt.Secondary == nil {
		err := &ccsds.MalformedPacketError{Reason: "telecommand without secondary header", Length: len(raw)}
		h.metrics.RecordCommand(0, 0, "malformed")
		return h.reject(ctx, span, Result{Status: StatusRejected, Timestamp: h.now()}, err)
	}

	key := ServiceKey{pkt.Secondary.ServiceType, pkt.Secondary.ServiceSubtype}
	span.SetAttributes(
		attribute.Int("mo.service", int(key.Type)),
		attribute.Int("mo.subtype", int(key.Subtype)),
		attribute.Int("ccsds.apid", int(pkt.Header.APID)),
	)
	base := Result{
		Status:         StatusRejected,
		ServiceType:    key.Type,
		ServiceSubtype: key.Subtype,
		Timestamp:      h.now(),
	}

	fn, ok := h.table[key]
	if !ok {
		err := &UnsupportedServiceError{ServiceType: key.Type, ServiceSubtype: key.Subtype}
		h.metrics.RecordCommand(key.Type, key.Subtype, "unsupported")
		base.Message = err.Error()
		return h.reject(ctx, span, base, err)
	}

	var env commandEnvelope
	if len(pkt.Payload) > 0 {
		if err := json.Unmarshal(pkt.Payload, &env); err != nil {
			merr := &ccsds.MalformedPacketError{Reason: "telecommand payload is not a valid envelope", Length: len(raw)}
			h.metrics.RecordCommand(key.Type, key.Subtype, "malformed")
			base.Message = merr.Reason
			return h.reject(ctx, span, base, merr)
		}
	}
	if env.CommandID == "" {
		env.CommandID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("mo.command_id", env.CommandID))
	base.CommandID = env.CommandID

	res, err := fn(ctx, Command{Packet: pkt, CommandID: env.CommandID, Parameters: env.Parameters})
	res.CommandID = env.CommandID
	res.ServiceType = key.Type
	res.ServiceSubtype = key.Subtype
	if res.Timestamp.IsZero() {
		res.Timestamp = h.now()
	}
	if err != nil {
		res.Status = StatusRejected
		if res.Message == "" {
			res.Message = err.Error()
		}
		h.metrics.RecordCommand(key.Type, key.Subtype, "rejected")
		return h.reject(ctx, span, res, err)
	}

	res.Status = StatusAcknowledged
	h.metrics.RecordCommand(key.Type, key.Subtype, "acknowledged")
	h.log.Info(ctx, "telecommand acknowledged",
		logging.String("command_id", res.CommandID),
		logging.Int("service", int(key.Type)),
		logging.Int("subtype", int(key.Subtype)),
		logging.String("message", res.Message),
	)
	return res, nil
}

func (h *Handler) reject(ctx context.Context, span trace.Span, res Result, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.log.Warn(ctx, "telecommand rejected",
		logging.String("command_id", res.CommandID),
		logging.Err(err),
	)
	return res, err
}

// connectionTest implements PUS 17/1. Without parameters it is a plain
// are-you-alive acknowledge. With subsystem and test_mode parameters it
// drives the named subsystem into a test condition.
func (h *Handler) connectionTest(ctx context.Context, cmd Command) (Result, error) {
	mode, hasMode := cmd.Parameters["test_mode"]
	if !hasMode {
		return Result{Message: "connection test passed"}, nil
	}

	sub, err := subsystemFromParams(cmd.Parameters)
	if err != nil {
		return Result{}, err
	}

	switch mode {
	case TestModeDiagnostic:
		h.health.Override(sub, sim.HealthDegraded, h.cfg.DiagnosticDuration)
		return Result{Message: fmt.Sprintf("%s diagnostic mode for %s", sub, h.cfg.DiagnosticDuration)}, nil
	case TestModeSafe:
		h.health.Override(sub, sim.HealthSafe, 0)
		return Result{Message: fmt.Sprintf("%s safe mode", sub)}, nil
	case TestModeNominal:
		h.health.Clear(sub)
		for _, id := range h.store.IdentifiersFor(sub) {
			if err := h.store.ClearForced(id); err != nil {
				return Result{}, err
			}
		}
		return Result{Message: fmt.Sprintf("%s nominal", sub)}, nil
	case TestModeFault:
		for _, id := range h.store.IdentifiersFor(sub) {
			if err := h.store.ForceValidity(id, params.Invalid); err != nil {
				return Result{}, err
			}
		}
		return Result{Message: fmt.Sprintf("%s parameters forced invalid", sub)}, nil
	default:
		return Result{}, fmt.Errorf("%w: unknown test_mode %q", ErrInvalidArgument, mode)
	}
}

// setReporting implements PUS 3/5 (enable) and 3/6 (disable).
func (h *Handler) setReporting(enabled bool) CommandFunc {
	return func(ctx context.Context, cmd Command) (Result, error) {
		sub, err := subsystemFromParams(cmd.Parameters)
		if err != nil {
			return Result{}, err
		}
		h.reporting.SetReporting(sub, enabled)
		verb := "disabled"
		if enabled {
			verb = "enabled"
		}
		return Result{Message: fmt.Sprintf("%s housekeeping reporting %s", sub, verb)}, nil
	}
}

func subsystemFromParams(p map[string]string) (params.Subsystem, error) {
	name, ok := p["subsystem"]
	if !ok {
		return "", fmt.Errorf("%w: missing subsystem", ErrInvalidArgument)
	}
	for _, sub := range params.Subsystems {
		if string(sub) == name {
			return sub, nil
		}
	}
	return "", fmt.Errorf("%w: unknown subsystem %q", ErrInvalidArgument, name)
}
