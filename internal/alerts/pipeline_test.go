package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
)

type fakeHistory struct {
	similar map[string][]*database.Alert
	err     error
	queries int
}

func historyKey(cityCode string, alertType database.AlertType) string {
	return cityCode + ":" + string(alertType)
}

func (h *fakeHistory) FindRecentSimilar(_ context.Context, cityCode string, alertType database.AlertType, _ time.Time) ([]*database.Alert, error) {
	h.queries++
	if h.err != nil {
		return nil, h.err
	}
	return h.similar[historyKey(cityCode, alertType)], nil
}

type fakeGuard struct {
	seen     map[string]bool
	recorded []string
	err      error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (g *fakeGuard) SeenRecently(_ context.Context, cityCode string, alertType database.AlertType) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.seen[historyKey(cityCode, alertType)], nil
}

func (g *fakeGuard) Record(_ context.Context, cityCode string, alertType database.AlertType, _ time.Time) error {
	g.recorded = append(g.recorded, historyKey(cityCode, alertType))
	return nil
}

type fakeAlertStore struct {
	saved   []*database.Alert
	sent    []int64
	saveErr error
	sentErr error
	nextID  int64
}

func (s *fakeAlertStore) SaveAlerts(_ context.Context, alerts []*database.Alert) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, a := range alerts {
		s.nextID++
		a.ID = s.nextID
		s.saved = append(s.saved, a)
	}
	return nil
}

func (s *fakeAlertStore) MarkAlertSent(_ context.Context, alertID int64, _ time.Time) error {
	if s.sentErr != nil {
		return s.sentErr
	}
	s.sent = append(s.sent, alertID)
	return nil
}

type fakeNotifier struct {
	notified []int64
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, alert *database.Alert) error {
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, alert.ID)
	return nil
}

func hotObservation(cityCode, cityName string) database.Observation {
	return database.Observation{
		ID:          7,
		CityCode:    cityCode,
		CityName:    cityName,
		Temperature: floatPtr(37.0),
		WeatherMain: "Clear",
	}
}

func TestProcessorKeepsNewAlert(t *testing.T) {
	history := &fakeHistory{}
	processor := NewProcessor(newTestRules(0.5), history, nil, time.Hour)

	out, err := processor.Process(context.Background(), hotObservation("Seoul", "서울"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out == nil {
		t.Fatal("Expected an alert group")
	}
	if len(*out) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(*out))
	}
	if (*out)[0].Type != database.AlertTypeHeatWave {
		t.Errorf("Unexpected alert type %s", (*out)[0].Type)
	}
}

func TestProcessorSuppressesDuplicateFromDatabase(t *testing.T) {
	history := &fakeHistory{
		similar: map[string][]*database.Alert{
			historyKey("Seoul", database.AlertTypeHeatWave): {{ID: 1}},
		},
	}
	processor := NewProcessor(newTestRules(0.5), history, nil, time.Hour)

	out, err := processor.Process(context.Background(), hotObservation("Seoul", "서울"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out != nil {
		t.Fatalf("Expected suppressed alert, got %d alerts", len(*out))
	}
}

func TestProcessorSuppressesDuplicateFromGuardWithoutDatabaseQuery(t *testing.T) {
	history := &fakeHistory{}
	guard := newFakeGuard()
	guard.seen[historyKey("Seoul", database.AlertTypeHeatWave)] = true

	processor := NewProcessor(newTestRules(0.5), history, guard, time.Hour)

	out, err := processor.Process(context.Background(), hotObservation("Seoul", "서울"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out != nil {
		t.Fatal("Expected guard to suppress the alert")
	}
	if history.queries != 0 {
		t.Errorf("Expected no database query on guard hit, got %d", history.queries)
	}
}

func TestProcessorFallsBackToDatabaseWhenGuardFails(t *testing.T) {
	history := &fakeHistory{}
	guard := newFakeGuard()
	guard.err = errors.New("redis down")

	processor := NewProcessor(newTestRules(0.5), history, guard, time.Hour)

	out, err := processor.Process(context.Background(), hotObservation("Seoul", "서울"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out == nil {
		t.Fatal("Expected alert to survive a guard failure")
	}
	if history.queries != 1 {
		t.Errorf("Expected database fallback query, got %d queries", history.queries)
	}
}

func TestProcessorSuppressesCandidateOnDedupError(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}
	processor := NewProcessor(newTestRules(0.5), history, nil, time.Hour)

	out, err := processor.Process(context.Background(), hotObservation("Seoul", "서울"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out != nil {
		t.Fatal("Expected candidate to be suppressed when the dedup check fails")
	}
}

func TestWriterSavesDispatchesAndMarksSent(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &fakeNotifier{}
	guard := newFakeGuard()
	writer := NewWriter(store, notifier, guard)

	chunk := [][]*database.Alert{
		{{CityCode: "Seoul", Type: database.AlertTypeHeatWave}},
		{{CityCode: "Daegu", Type: database.AlertTypeColdWave}},
	}

	if err := writer.Write(context.Background(), chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(store.saved) != 2 {
		t.Fatalf("Expected 2 saved alerts, got %d", len(store.saved))
	}
	if len(notifier.notified) != 2 {
		t.Errorf("Expected 2 notifications, got %d", len(notifier.notified))
	}
	if len(store.sent) != 2 {
		t.Errorf("Expected 2 sent markers, got %d", len(store.sent))
	}
	if len(guard.recorded) != 2 {
		t.Errorf("Expected 2 dedup records, got %d", len(guard.recorded))
	}
	for _, a := range store.saved {
		if !a.IsSent || a.SentTime == nil {
			t.Errorf("Expected alert %d marked sent", a.ID)
		}
	}
}

func TestWriterLeavesAlertUnsentOnDispatchFailure(t *testing.T) {
	store := &fakeAlertStore{}
	notifier := &fakeNotifier{err: errors.New("kafka down")}
	writer := NewWriter(store, notifier, nil)

	chunk := [][]*database.Alert{
		{{CityCode: "Seoul", Type: database.AlertTypeHeatWave}},
	}

	if err := writer.Write(context.Background(), chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("Expected alert saved despite dispatch failure, got %d", len(store.saved))
	}
	if len(store.sent) != 0 {
		t.Errorf("Expected no sent markers, got %d", len(store.sent))
	}
	if store.saved[0].IsSent {
		t.Error("Expected alert to stay unsent")
	}
}

func TestWriterFailsChunkOnSaveError(t *testing.T) {
	store := &fakeAlertStore{saveErr: errors.New("insert failed")}
	notifier := &fakeNotifier{}
	writer := NewWriter(store, notifier, nil)

	chunk := [][]*database.Alert{
		{{CityCode: "Seoul", Type: database.AlertTypeHeatWave}},
	}

	if err := writer.Write(context.Background(), chunk); err == nil {
		t.Fatal("Expected save error to fail the chunk")
	}
	if len(notifier.notified) != 0 {
		t.Errorf("Expected no dispatch after failed save, got %d", len(notifier.notified))
	}
}

type fakeObservationSource struct {
	items []*database.Observation
	err   error
}

func (s *fakeObservationSource) FindCollectedSince(_ context.Context, _ time.Time) ([]*database.Observation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func TestObservationReaderYieldsAllThenNil(t *testing.T) {
	source := &fakeObservationSource{items: []*database.Observation{
		{ID: 1}, {ID: 2},
	}}
	reader := NewObservationReader(source, time.Now())

	first, err := reader.Read(context.Background())
	if err != nil || first == nil || first.ID != 1 {
		t.Fatalf("Unexpected first read: %v %v", first, err)
	}
	second, err := reader.Read(context.Background())
	if err != nil || second == nil || second.ID != 2 {
		t.Fatalf("Unexpected second read: %v %v", second, err)
	}
	end, err := reader.Read(context.Background())
	if err != nil || end != nil {
		t.Fatalf("Expected end of stream, got %v %v", end, err)
	}
}

func TestObservationReaderPropagatesQueryError(t *testing.T) {
	reader := NewObservationReader(&fakeObservationSource{err: errors.New("query failed")}, time.Now())

	if _, err := reader.Read(context.Background()); err == nil {
		t.Fatal("Expected query error")
	}
}
