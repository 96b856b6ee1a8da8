package mo

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/ccsds-mission-sim/params"
)

// QueryResponse carries one parameter reading per requested identifier,
// in request order. RequestID echoes the caller's correlation token.
type QueryResponse struct {
	RequestID string       `json:"requestId"`
	Timestamp time.Time    `json:"timestamp"`
	Entries   []QueryEntry `json:"entries"`
}

// QueryEntry is the query-side view of one parameter.
type QueryEntry struct {
	Name      string          `json:"name"`
	Value     params.Value    `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Validity  params.Validity `json:"validity"`
	Timestamp time.Time       `json:"timestamp"`
}

// QueryService answers point reads against the parameter store. It is a
// pure read surface: it never writes and each lookup takes exactly one
// entry lock inside the store.
type QueryService struct {
	store *params.Store
	now   func() time.Time
}

// NewQueryService builds a query service over the store.
func NewQueryService(store *params.Store) *QueryService {
	return &QueryService{store: store, now: time.Now}
}

// Query resolves the requested identifiers. Identifiers absent from the
// catalog come back with validity UNKNOWN rather than being dropped, so
// the response always has one entry per requested id, in request order.
func (q *QueryService) Query(ctx context.Context, requestID string, ids []string) QueryResponse {
	_, span := otel.Tracer("mo").Start(ctx, "Query")
	span.SetAttributes(
		attribute.String("mo.request_id", requestID),
		attribute.Int("mo.parameter_count", len(ids)),
	)
	defer span.End()

	readings := q.store.Get(ids...)
	entries := make([]QueryEntry, 0, len(ids))
	for _, id := range ids {
		r := readings[id]
		entries = append(entries, QueryEntry{
			Name:      r.Name,
			Value:     r.Value,
			Unit:      r.Unit,
			Validity:  r.Validity,
			Timestamp: r.Timestamp,
		})
	}
	return QueryResponse{RequestID: requestID, Timestamp: q.now().UTC(), Entries: entries}
}
