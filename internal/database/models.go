package database

import (
	"time"
)

// Observation is a single weather reading for one city at one instant,
// collected from the provider. Rows are insert-only.
type Observation struct {
	ID                 int64
	CityCode           string
	CityName           string
	Temperature        *float64
	FeelsLike          *float64
	TempMin            *float64
	TempMax            *float64
	Humidity           *int
	Pressure           *int
	WeatherMain        string
	WeatherDescription string
	Cloudiness         *int
	WindSpeed          *float64
	WindDirection      *int
	Rainfall           *float64
	Snowfall           *float64
	Visibility         *int
	CollectedAt        time.Time
	WeatherTime        time.Time
	TemperatureChange  *float64
	IsAbnormal         bool
}

// DailyStatistic is the per-city per-date summary row, unique on
// (stat_date, city_code) and upserted by the statistics job.
type DailyStatistic struct {
	ID                   int64
	StatDate             time.Time
	CityCode             string
	CityName             string
	AvgTemperature       *float64
	MaxTemperature       *float64
	MinTemperature       *float64
	TemperatureRange     *float64
	AvgHumidity          *int
	AvgPressure          *int
	DominantWeather      string
	ClearHours           int
	CloudyHours          int
	RainyHours           int
	AbnormalWeatherCount int
	MaxTemperatureChange *float64
	TotalRecords         int
	DataCollectionRate   float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AlertType classifies a weather alert.
type AlertType string

const (
	AlertTypeHeatWave        AlertType = "HEAT_WAVE"
	AlertTypeColdWave        AlertType = "COLD_WAVE"
	AlertTypeHeavyRain       AlertType = "HEAVY_RAIN"
	AlertTypeHeavySnow       AlertType = "HEAVY_SNOW"
	AlertTypeStrongWind      AlertType = "STRONG_WIND"
	AlertTypeAbnormalWeather AlertType = "ABNORMAL_WEATHER"
)

// AlertLevel is the severity assigned by the alert rules.
type AlertLevel string

const (
	AlertLevelNotice    AlertLevel = "NOTICE"
	AlertLevelAdvisory  AlertLevel = "ADVISORY"
	AlertLevelWarning   AlertLevel = "WARNING"
	AlertLevelEmergency AlertLevel = "EMERGENCY"
)

// Alert is one operational warning bound to the observation that
// triggered it. It is mutated once to mark it sent and optionally once
// more to mark it resolved.
type Alert struct {
	ID             int64
	CityCode       string
	CityName       string
	Type           AlertType
	Level          AlertLevel
	Title          string
	Message        string
	TriggerValue   float64
	ThresholdValue float64
	ObservationID  int64
	AlertTime      time.Time
	IsSent         bool
	SentTime       *time.Time
	IsResolved     bool
	ResolvedTime   *time.Time
	CreatedAt      time.Time
}

// JobExecution records one launch of a batch job. Two launches with the
// same job name and parameter key are the same logical run.
type JobExecution struct {
	ID        string
	JobName   string
	ParamsKey string
	Status    string
	ExitError string
	StartedAt time.Time
	EndedAt   *time.Time
}
