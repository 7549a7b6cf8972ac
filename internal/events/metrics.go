package events

import (
	"context"
	"time"

	"prospect_backend/platform/metrics"
)

// SubscribeMetrics keeps the Prometheus collectors in step with domain events.
func SubscribeMetrics(bus Bus, m *metrics.Metrics) {
	bus.Subscribe(ProspectsImported{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(ProspectsImported); ok {
			m.ObserveImport(e.Processed, e.Assigned, e.Unassigned, e.Supplied)
		}
		return nil
	}))

	bus.Subscribe(ImportRejected{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(ImportRejected); ok {
			m.ObserveImportRejected(e.Reason)
		}
		return nil
	}))

	bus.Subscribe(ScoresRecalculated{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(ScoresRecalculated); ok {
			m.ObserveRecalculation(e.Rescored, time.Duration(e.DurationMs)*time.Millisecond)
		}
		return nil
	}))

	bus.Subscribe(ScoreRecalculationFailed{}.EventName(), HandlerFunc(func(_ context.Context, event Event) error {
		if e, ok := event.(ScoreRecalculationFailed); ok {
			m.ObserveRecalculationFailed(e.Result)
		}
		return nil
	}))
}
