package mo

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/ccsds-mission-sim/params"
	"github.com/signalsfoundry/ccsds-mission-sim/sim"
)

type discardSink struct{}

func (discardSink) Send([]byte) error { return nil }

// End-to-end pass through generator, store, query service, and
// telecommand handler.
func TestTelemetryCommandQueryScenario(t *testing.T) {
	store := params.NewStore(params.DefaultCatalog(), 5*time.Second)
	health := sim.NewHealthTracker()
	gen := sim.New(sim.Config{}, store, health, discardSink{},
		sim.WithOrbit(sim.FixedOrbit{X: 6771}),
	)
	handler := NewHandler(HandlerConfig{}, store, health, gen)
	query := NewQueryService(store)

	now := time.Now().UTC()
	gen.Tick(context.Background(), now)

	resp := query.Query(context.Background(), "rid-1", []string{"MEAS_TEMPERATURE_BUS"})
	if resp.RequestID != "rid-1" || len(resp.Entries) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	entry := resp.Entries[0]
	if entry.Validity != params.Valid {
		t.Fatalf("validity = %q, want VALID", entry.Validity)
	}
	if entry.Value.Num < 15 || entry.Value.Num > 35 {
		t.Fatalf("MEAS_TEMPERATURE_BUS = %v, want within [15,35]", entry.Value.Num)
	}

	raw := encodeCommand(t, ServiceTest, SubtypeConnectionTest,
		envelope(t, "cmd-diag", map[string]string{"subsystem": "EPS", "test_mode": TestModeDiagnostic}))
	res, err := handler.Handle(context.Background(), raw)
	if err != nil || res.Status != StatusAcknowledged {
		t.Fatalf("diagnostic command: %+v, %v", res, err)
	}

	// Nominal MEAS_VOLTAGE_BUS band is [10.5, 13.5]; the default shaping
	// puts the DEGRADED band at [11.25, 12.75].
	for i := 1; i <= 20; i++ {
		gen.Tick(context.Background(), now.Add(time.Duration(i)*time.Second))
		r := query.Query(context.Background(), "rid-2", []string{"MEAS_VOLTAGE_BUS"}).Entries[0]
		if r.Value.Num < 11.25 || r.Value.Num > 12.75 {
			t.Fatalf("degraded sample %v outside shifted band", r.Value.Num)
		}
	}
}
