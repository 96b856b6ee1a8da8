package mo

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/ccsds-mission-sim/params"
)

func TestQueryEchoesRequestAndOrder(t *testing.T) {
	store := params.NewStore(params.DefaultCatalog(), 5*time.Second)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	if _, err := store.Update("MEAS_VOLTAGE_BUS", params.Number(12.4), params.Valid, now); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	q := NewQueryService(store)
	resp := q.Query(context.Background(), "req-7",
		[]string{"MEAS_TEMPERATURE_BUS", "MEAS_VOLTAGE_BUS", "NOT_A_PARAMETER"})

	if resp.RequestID != "req-7" {
		t.Fatalf("request id = %q, want req-7", resp.RequestID)
	}
	if len(resp.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(resp.Entries))
	}

	// Entries come back in request order.
	if resp.Entries[0].Name != "MEAS_TEMPERATURE_BUS" || resp.Entries[1].Name != "MEAS_VOLTAGE_BUS" {
		t.Fatalf("entry order = %q, %q", resp.Entries[0].Name, resp.Entries[1].Name)
	}

	// Never-written parameters report STALE, not an error.
	if resp.Entries[0].Validity != params.Stale {
		t.Fatalf("unwritten validity = %q, want STALE", resp.Entries[0].Validity)
	}

	written := resp.Entries[1]
	if written.Value.Num != 12.4 || written.Unit != "V" || !written.Timestamp.Equal(now) {
		t.Fatalf("written entry = %+v", written)
	}

	// Identifiers outside the catalog come back UNKNOWN rather than
	// being dropped.
	unknown := resp.Entries[2]
	if unknown.Name != "NOT_A_PARAMETER" || unknown.Validity != params.Unknown {
		t.Fatalf("unknown entry = %+v", unknown)
	}
}

func TestQueryDoesNotMutate(t *testing.T) {
	store := params.NewStore(params.DefaultCatalog(), 5*time.Second)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	if _, err := store.Update("MEAS_GYRO_X", params.Number(0.05), params.Valid, now); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	q := NewQueryService(store)
	for i := 0; i < 10; i++ {
		q.Query(context.Background(), "req", []string{"MEAS_GYRO_X"})
	}

	r := store.Get("MEAS_GYRO_X")["MEAS_GYRO_X"]
	if r.Value.Num != 0.05 || !r.Timestamp.Equal(now) {
		t.Fatalf("reading mutated by queries: %+v", r)
	}
}
