package collection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/provider"
)

type fakeFetcher struct {
	responses map[string]*provider.CurrentWeather
	err       error
}

func (f *fakeFetcher) Fetch(_ context.Context, cityCode string) (*provider.CurrentWeather, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[cityCode]
	if !ok {
		return nil, errors.New("unknown city")
	}
	return resp, nil
}

type fakeLookup struct {
	priorDay []*database.Observation
	err      error
}

func (l *fakeLookup) FindByCityBetween(_ context.Context, _ string, _, _ time.Time) ([]*database.Observation, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.priorDay, nil
}

type fakeObservationStore struct {
	saved []*database.Observation
	err   error
}

func (s *fakeObservationStore) SaveObservations(_ context.Context, observations []*database.Observation) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, observations...)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func weatherResponse(temp float64, main string) *provider.CurrentWeather {
	resp := &provider.CurrentWeather{}
	resp.Main.Temp = temp
	resp.Weather = []provider.WeatherItem{{Main: main, Description: main}}
	return resp
}

func newTestProcessor(fetcher Fetcher, lookup ObservationLookup) *Processor {
	p := NewProcessor(fetcher, lookup, 20.0)
	p.now = func() time.Time { return time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessorTranslatesObservation(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": weatherResponse(23.4, "Clear"),
	}}
	processor := newTestProcessor(fetcher, &fakeLookup{})

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if obs == nil {
		t.Fatal("Expected an observation")
	}

	if obs.CityCode != "Seoul" {
		t.Errorf("Unexpected city code %s", obs.CityCode)
	}
	if obs.CityName != "서울" {
		t.Errorf("Unexpected city name %s", obs.CityName)
	}
	if obs.Temperature == nil || *obs.Temperature != 23.4 {
		t.Errorf("Unexpected temperature %v", obs.Temperature)
	}
	if obs.WeatherMain != "Clear" {
		t.Errorf("Unexpected weather main %s", obs.WeatherMain)
	}
	if obs.IsAbnormal {
		t.Error("Expected observation not abnormal without prior data")
	}
	if obs.TemperatureChange != nil {
		t.Errorf("Expected null temperature change, got %v", *obs.TemperatureChange)
	}
}

func TestProcessorSkipsFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider down")}
	processor := newTestProcessor(fetcher, &fakeLookup{})

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Expected fetch failure to be skipped, got error: %v", err)
	}
	if obs != nil {
		t.Fatal("Expected no observation on fetch failure")
	}
}

func TestProcessorFlagsAbnormalTemperatureDrop(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": weatherResponse(-1.0, "Clear"),
	}}
	lookup := &fakeLookup{priorDay: []*database.Observation{
		{Temperature: floatPtr(21.0)},
	}}
	processor := newTestProcessor(fetcher, lookup)

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if obs.TemperatureChange == nil || *obs.TemperatureChange != -22.0 {
		t.Fatalf("Unexpected temperature change %v", obs.TemperatureChange)
	}
	if !obs.IsAbnormal {
		t.Error("Expected observation flagged abnormal")
	}
}

func TestProcessorAbnormalThresholdInclusive(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": weatherResponse(40.0, "Clear"),
	}}
	lookup := &fakeLookup{priorDay: []*database.Observation{
		{Temperature: floatPtr(20.0)},
	}}
	processor := newTestProcessor(fetcher, lookup)

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !obs.IsAbnormal {
		t.Error("Expected change of exactly 20.0 to be abnormal")
	}
}

func TestProcessorSmallChangeNotAbnormal(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": weatherResponse(24.0, "Clear"),
	}}
	lookup := &fakeLookup{priorDay: []*database.Observation{
		{Temperature: floatPtr(21.0)},
	}}
	processor := newTestProcessor(fetcher, lookup)

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if obs.TemperatureChange == nil || *obs.TemperatureChange != 3.0 {
		t.Fatalf("Unexpected temperature change %v", obs.TemperatureChange)
	}
	if obs.IsAbnormal {
		t.Error("Expected small change not abnormal")
	}
}

func TestProcessorKeepsObservationWhenLookupFails(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": weatherResponse(23.0, "Clear"),
	}}
	lookup := &fakeLookup{err: errors.New("query failed")}
	processor := newTestProcessor(fetcher, lookup)

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if obs == nil {
		t.Fatal("Expected observation despite lookup failure")
	}
	if obs.TemperatureChange != nil || obs.IsAbnormal {
		t.Error("Expected no change computed when lookup fails")
	}
}

func TestProcessorTranslatesPrecipitation(t *testing.T) {
	resp := weatherResponse(18.0, "Rain")
	resp.Rain = &provider.Precipitation{OneHour: floatPtr(4.2)}

	fetcher := &fakeFetcher{responses: map[string]*provider.CurrentWeather{
		"Seoul": resp,
	}}
	processor := newTestProcessor(fetcher, &fakeLookup{})

	obs, err := processor.Process(context.Background(), "Seoul")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if obs.Rainfall == nil || *obs.Rainfall != 4.2 {
		t.Errorf("Unexpected rainfall %v", obs.Rainfall)
	}
	if obs.Snowfall != nil {
		t.Errorf("Expected null snowfall, got %v", *obs.Snowfall)
	}
}

func TestWriterSavesChunk(t *testing.T) {
	store := &fakeObservationStore{}
	writer := NewWriter(store)

	chunk := []database.Observation{
		{CityCode: "Seoul"},
		{CityCode: "Busan"},
		{CityCode: "Incheon"},
	}
	if err := writer.Write(context.Background(), chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(store.saved) != 3 {
		t.Fatalf("Expected 3 saved observations, got %d", len(store.saved))
	}
}

func TestWriterPropagatesStoreError(t *testing.T) {
	store := &fakeObservationStore{err: errors.New("insert failed")}
	writer := NewWriter(store)

	err := writer.Write(context.Background(), []database.Observation{{CityCode: "Seoul"}})
	if err == nil {
		t.Fatal("Expected store error")
	}
}
