// Package alerts implements the weather alert job: recent observations
// are evaluated against the alert rules, deduplicated, persisted in
// chunks of 10 and dispatched to the notification topic.
package alerts

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/pkg/config"
)

// Rules evaluates one observation against the four alert rules. The
// random source feeds the simulated rainfall estimate and is injectable
// for tests.
type Rules struct {
	thresholds config.ThresholdConfig
	randFloat  func() float64
	now        func() time.Time
}

func NewRules(thresholds config.ThresholdConfig) *Rules {
	return &Rules{
		thresholds: thresholds,
		randFloat:  rand.Float64,
		now:        time.Now,
	}
}

// Evaluate returns the alert candidates raised by one observation. A
// quiet observation yields an empty slice. Candidates are not yet
// deduplicated.
func (r *Rules) Evaluate(obs *database.Observation) []*database.Alert {
	var candidates []*database.Alert

	if a := r.checkHeatWave(obs); a != nil {
		candidates = append(candidates, a)
	}
	if a := r.checkColdWave(obs); a != nil {
		candidates = append(candidates, a)
	}
	if a := r.checkHeavyRain(obs); a != nil {
		candidates = append(candidates, a)
	}
	if a := r.checkAbnormalWeather(obs); a != nil {
		candidates = append(candidates, a)
	}

	return candidates
}

func (r *Rules) checkHeatWave(obs *database.Observation) *database.Alert {
	if obs.Temperature == nil || *obs.Temperature < r.thresholds.HeatWave {
		return nil
	}

	a := r.newAlert(obs, database.AlertTypeHeatWave, database.AlertLevelWarning,
		*obs.Temperature, r.thresholds.HeatWave)
	a.Title = fmt.Sprintf("%s 폭염 경보", obs.CityName)
	a.Message = fmt.Sprintf("현재 기온이 %.1f°C로 폭염 기준(%.1f°C)을 초과했습니다.",
		*obs.Temperature, r.thresholds.HeatWave)
	return a
}

func (r *Rules) checkColdWave(obs *database.Observation) *database.Alert {
	if obs.Temperature == nil || *obs.Temperature > r.thresholds.ColdWave {
		return nil
	}

	a := r.newAlert(obs, database.AlertTypeColdWave, database.AlertLevelAdvisory,
		*obs.Temperature, r.thresholds.ColdWave)
	a.Title = fmt.Sprintf("%s 한파 주의보", obs.CityName)
	a.Message = fmt.Sprintf("현재 기온이 %.1f°C로 한파 기준(%.1f°C) 이하로 떨어졌습니다.",
		*obs.Temperature, r.thresholds.ColdWave)
	return a
}

// checkHeavyRain fires on rainy weather classes. The provider carries no
// hourly rainfall forecast, so the expected rainfall is simulated above
// the threshold, heavier for thunderstorms.
func (r *Rules) checkHeavyRain(obs *database.Observation) *database.Alert {
	var rainfall float64
	switch obs.WeatherMain {
	case "Thunderstorm":
		rainfall = 60 + r.randFloat()*40
	case "Rain":
		rainfall = 50 + r.randFloat()*20
	default:
		return nil
	}

	a := r.newAlert(obs, database.AlertTypeHeavyRain, database.AlertLevelWarning,
		rainfall, r.thresholds.HeavyRain)
	a.Title = fmt.Sprintf("%s 호우 경보", obs.CityName)
	a.Message = fmt.Sprintf("시간당 예상 강수량이 %.1fmm로 호우 기준(%.1fmm)을 초과했습니다.",
		rainfall, r.thresholds.HeavyRain)
	return a
}

func (r *Rules) checkAbnormalWeather(obs *database.Observation) *database.Alert {
	if obs.TemperatureChange == nil {
		return nil
	}
	change := math.Abs(*obs.TemperatureChange)
	if change < r.thresholds.AbnormalTempChange {
		return nil
	}

	a := r.newAlert(obs, database.AlertTypeAbnormalWeather, database.AlertLevelNotice,
		change, r.thresholds.AbnormalTempChange)
	a.Title = fmt.Sprintf("%s 이상 기후 감지", obs.CityName)
	a.Message = fmt.Sprintf("전일 대비 기온이 %.1f°C 변화하여 이상 기후로 감지되었습니다.",
		*obs.TemperatureChange)
	return a
}

func (r *Rules) newAlert(obs *database.Observation, alertType database.AlertType, level database.AlertLevel, trigger, threshold float64) *database.Alert {
	return &database.Alert{
		CityCode:       obs.CityCode,
		CityName:       obs.CityName,
		Type:           alertType,
		Level:          level,
		TriggerValue:   trigger,
		ThresholdValue: threshold,
		ObservationID:  obs.ID,
		AlertTime:      r.now(),
	}
}
