package alerts

import (
	"testing"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/pkg/config"
)

var testThresholds = config.ThresholdConfig{
	HeatWave:           35.0,
	ColdWave:           -10.0,
	HeavyRain:          50.0,
	AbnormalTempChange: 20.0,
}

func newTestRules(randValue float64) *Rules {
	r := NewRules(testThresholds)
	r.randFloat = func() float64 { return randValue }
	r.now = func() time.Time { return time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC) }
	return r
}

func floatPtr(v float64) *float64 { return &v }

func observation(cityCode, cityName string, temp *float64) *database.Observation {
	return &database.Observation{
		ID:          42,
		CityCode:    cityCode,
		CityName:    cityName,
		Temperature: temp,
		WeatherMain: "Clear",
	}
}

func TestHeatWaveAlert(t *testing.T) {
	rules := newTestRules(0.5)
	obs := observation("Seoul", "서울", floatPtr(37.5))

	alerts := rules.Evaluate(obs)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Type != database.AlertTypeHeatWave {
		t.Errorf("Expected type %s, got %s", database.AlertTypeHeatWave, a.Type)
	}
	if a.Level != database.AlertLevelWarning {
		t.Errorf("Expected level %s, got %s", database.AlertLevelWarning, a.Level)
	}
	if a.Title != "서울 폭염 경보" {
		t.Errorf("Unexpected title: %s", a.Title)
	}
	if a.TriggerValue != 37.5 {
		t.Errorf("Expected trigger 37.5, got %.1f", a.TriggerValue)
	}
	if a.ThresholdValue != 35.0 {
		t.Errorf("Expected threshold 35.0, got %.1f", a.ThresholdValue)
	}
	if a.ObservationID != 42 {
		t.Errorf("Expected observation id 42, got %d", a.ObservationID)
	}
}

func TestHeatWaveBoundaryInclusive(t *testing.T) {
	rules := newTestRules(0.5)

	alerts := rules.Evaluate(observation("Seoul", "서울", floatPtr(35.0)))
	if len(alerts) != 1 {
		t.Fatalf("Expected alert at exactly 35.0, got %d", len(alerts))
	}

	alerts = rules.Evaluate(observation("Seoul", "서울", floatPtr(34.9)))
	if len(alerts) != 0 {
		t.Fatalf("Expected no alert below threshold, got %d", len(alerts))
	}
}

func TestColdWaveAlert(t *testing.T) {
	rules := newTestRules(0.5)
	obs := observation("Daegu", "대구", floatPtr(-12.3))

	alerts := rules.Evaluate(obs)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Type != database.AlertTypeColdWave {
		t.Errorf("Expected type %s, got %s", database.AlertTypeColdWave, a.Type)
	}
	if a.Level != database.AlertLevelAdvisory {
		t.Errorf("Expected level %s, got %s", database.AlertLevelAdvisory, a.Level)
	}
	if a.Title != "대구 한파 주의보" {
		t.Errorf("Unexpected title: %s", a.Title)
	}
	if a.TriggerValue != -12.3 {
		t.Errorf("Expected trigger -12.3, got %.1f", a.TriggerValue)
	}
}

func TestHeavyRainAlertSimulatedRainfall(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Busan", "부산", floatPtr(22.0))
	obs.WeatherMain = "Rain"

	alerts := rules.Evaluate(obs)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Type != database.AlertTypeHeavyRain {
		t.Errorf("Expected type %s, got %s", database.AlertTypeHeavyRain, a.Type)
	}
	if a.Level != database.AlertLevelWarning {
		t.Errorf("Expected level %s, got %s", database.AlertLevelWarning, a.Level)
	}
	// Rain simulates 50 + rand*20
	if a.TriggerValue != 60.0 {
		t.Errorf("Expected simulated rainfall 60.0, got %.1f", a.TriggerValue)
	}
	if a.Title != "부산 호우 경보" {
		t.Errorf("Unexpected title: %s", a.Title)
	}
}

func TestThunderstormRainfallHeavierThanRain(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Busan", "부산", floatPtr(22.0))
	obs.WeatherMain = "Thunderstorm"

	alerts := rules.Evaluate(obs)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	// Thunderstorm simulates 60 + rand*40
	if alerts[0].TriggerValue != 80.0 {
		t.Errorf("Expected simulated rainfall 80.0, got %.1f", alerts[0].TriggerValue)
	}
}

func TestAbnormalWeatherAlert(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Incheon", "인천", floatPtr(2.0))
	obs.TemperatureChange = floatPtr(-22.5)

	alerts := rules.Evaluate(obs)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Type != database.AlertTypeAbnormalWeather {
		t.Errorf("Expected type %s, got %s", database.AlertTypeAbnormalWeather, a.Type)
	}
	if a.Level != database.AlertLevelNotice {
		t.Errorf("Expected level %s, got %s", database.AlertLevelNotice, a.Level)
	}
	// Trigger value is the magnitude of the change.
	if a.TriggerValue != 22.5 {
		t.Errorf("Expected trigger 22.5, got %.1f", a.TriggerValue)
	}
	if a.Title != "인천 이상 기후 감지" {
		t.Errorf("Unexpected title: %s", a.Title)
	}
}

func TestQuietObservationRaisesNothing(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Seoul", "서울", floatPtr(21.0))
	obs.TemperatureChange = floatPtr(3.0)

	if alerts := rules.Evaluate(obs); len(alerts) != 0 {
		t.Errorf("Expected no alerts, got %d", len(alerts))
	}
}

func TestNullTemperatureSkipsTemperatureRules(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Seoul", "서울", nil)
	if alerts := rules.Evaluate(obs); len(alerts) != 0 {
		t.Errorf("Expected no alerts for null temperature, got %d", len(alerts))
	}
}

func TestMultipleRulesFireTogether(t *testing.T) {
	rules := newTestRules(0.5)

	obs := observation("Gwangju", "광주", floatPtr(36.0))
	obs.WeatherMain = "Rain"
	obs.TemperatureChange = floatPtr(21.0)

	alerts := rules.Evaluate(obs)
	if len(alerts) != 3 {
		t.Fatalf("Expected 3 alerts, got %d", len(alerts))
	}

	types := map[database.AlertType]bool{}
	for _, a := range alerts {
		types[a.Type] = true
	}
	for _, want := range []database.AlertType{
		database.AlertTypeHeatWave, database.AlertTypeHeavyRain, database.AlertTypeAbnormalWeather,
	} {
		if !types[want] {
			t.Errorf("Missing alert type %s", want)
		}
	}
}
