package alerts

import (
	"context"
	"log"
	"time"

	"github.com/jbkim/weather-batch/internal/batch"
	"github.com/jbkim/weather-batch/internal/database"
)

// ChunkSize is the number of processed items committed per transaction.
// One processed item is the alert group of one observation.
const ChunkSize = 10

// Lookback bounds how far back the reader pulls observations.
const Lookback = 24 * time.Hour

// ObservationSource feeds the reader with recent observations.
type ObservationSource interface {
	FindCollectedSince(ctx context.Context, since time.Time) ([]*database.Observation, error)
}

// AlertHistory answers the authoritative dedup query.
type AlertHistory interface {
	FindRecentSimilar(ctx context.Context, cityCode string, alertType database.AlertType, after time.Time) ([]*database.Alert, error)
}

// StateGuard is the Redis fast path in front of AlertHistory. It is
// optional; a nil guard means every check goes to the database.
type StateGuard interface {
	SeenRecently(ctx context.Context, cityCode string, alertType database.AlertType) (bool, error)
	Record(ctx context.Context, cityCode string, alertType database.AlertType, alertTime time.Time) error
}

// AlertStore persists alert chunks and sent markers.
type AlertStore interface {
	SaveAlerts(ctx context.Context, alerts []*database.Alert) error
	MarkAlertSent(ctx context.Context, alertID int64, sentAt time.Time) error
}

// Notifier dispatches one saved alert. Failures leave the alert unsent
// for a later retry pass.
type Notifier interface {
	Notify(ctx context.Context, alert *database.Alert) error
}

// ObservationReader yields recent observations one at a time. The
// backing query runs once, on the first Read.
type ObservationReader struct {
	source ObservationSource
	since  time.Time
	items  []*database.Observation
	loaded bool
	index  int
}

func NewObservationReader(source ObservationSource, since time.Time) *ObservationReader {
	return &ObservationReader{source: source, since: since}
}

func (r *ObservationReader) Read(ctx context.Context) (*database.Observation, error) {
	if !r.loaded {
		items, err := r.source.FindCollectedSince(ctx, r.since)
		if err != nil {
			return nil, err
		}
		r.items = items
		r.loaded = true
	}
	if r.index >= len(r.items) {
		return nil, nil
	}
	item := r.items[r.index]
	r.index++
	return item, nil
}

// Processor evaluates one observation and drops candidates that
// duplicate an unresolved alert of the same city and type inside the
// dedup window. A dedup check failure suppresses only that candidate.
type Processor struct {
	rules   *Rules
	history AlertHistory
	guard   StateGuard
	window  time.Duration
	now     func() time.Time
}

func NewProcessor(rules *Rules, history AlertHistory, guard StateGuard, window time.Duration) *Processor {
	return &Processor{
		rules:   rules,
		history: history,
		guard:   guard,
		window:  window,
		now:     time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, obs database.Observation) (*[]*database.Alert, error) {
	candidates := p.rules.Evaluate(&obs)
	if len(candidates) == 0 {
		return nil, nil
	}

	var kept []*database.Alert
	for _, candidate := range candidates {
		duplicate, err := p.isDuplicate(ctx, candidate)
		if err != nil {
			log.Printf("alerts: dedup check failed for %s/%s, suppressing: %v",
				candidate.CityCode, candidate.Type, err)
			continue
		}
		if duplicate {
			log.Printf("alerts: %s/%s already alerted within %s, skipping",
				candidate.CityCode, candidate.Type, p.window)
			continue
		}
		kept = append(kept, candidate)
	}

	if len(kept) == 0 {
		return nil, nil
	}
	return &kept, nil
}

func (p *Processor) isDuplicate(ctx context.Context, candidate *database.Alert) (bool, error) {
	if p.guard != nil {
		seen, err := p.guard.SeenRecently(ctx, candidate.CityCode, candidate.Type)
		if err != nil {
			log.Printf("alerts: dedup cache unavailable, falling back to database: %v", err)
		} else if seen {
			return true, nil
		}
	}

	after := p.now().Add(-p.window)
	similar, err := p.history.FindRecentSimilar(ctx, candidate.CityCode, candidate.Type, after)
	if err != nil {
		return false, err
	}
	return len(similar) > 0, nil
}

// Writer flattens the chunk, saves every alert in one transaction, then
// dispatches each saved alert. A failed dispatch only logs; the alert
// stays unsent.
type Writer struct {
	store    AlertStore
	notifier Notifier
	guard    StateGuard
	now      func() time.Time
}

func NewWriter(store AlertStore, notifier Notifier, guard StateGuard) *Writer {
	return &Writer{
		store:    store,
		notifier: notifier,
		guard:    guard,
		now:      time.Now,
	}
}

func (w *Writer) Write(ctx context.Context, chunk [][]*database.Alert) error {
	var alerts []*database.Alert
	for _, group := range chunk {
		alerts = append(alerts, group...)
	}
	if len(alerts) == 0 {
		return nil
	}

	if err := w.store.SaveAlerts(ctx, alerts); err != nil {
		return err
	}
	log.Printf("alerts: saved %d alerts", len(alerts))

	for _, a := range alerts {
		if w.guard != nil {
			if err := w.guard.Record(ctx, a.CityCode, a.Type, a.AlertTime); err != nil {
				log.Printf("alerts: failed to record dedup state for %s/%s: %v",
					a.CityCode, a.Type, err)
			}
		}

		if w.notifier == nil {
			continue
		}
		if err := w.notifier.Notify(ctx, a); err != nil {
			log.Printf("alerts: failed to dispatch alert %d (%s/%s): %v",
				a.ID, a.CityCode, a.Type, err)
			continue
		}

		sentAt := w.now()
		if err := w.store.MarkAlertSent(ctx, a.ID, sentAt); err != nil {
			log.Printf("alerts: dispatched alert %d but failed to mark it sent: %v", a.ID, err)
			continue
		}
		a.IsSent = true
		a.SentTime = &sentAt
	}

	return nil
}

// NewStep assembles the alert step over observations collected after
// the given instant.
func NewStep(source ObservationSource, history AlertHistory, store AlertStore, notifier Notifier, guard StateGuard, rules *Rules, since time.Time, window time.Duration) batch.StepRunner {
	return &batch.Step[database.Observation, []*database.Alert]{
		Name:      "weatherAlertStep",
		Reader:    NewObservationReader(source, since),
		Processor: NewProcessor(rules, history, guard, window),
		Writer:    NewWriter(store, notifier, guard),
		ChunkSize: ChunkSize,
	}
}
