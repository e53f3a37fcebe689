package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const observationColumns = `
	id, city_code, city_name, temperature, feels_like, temp_min, temp_max,
	humidity, pressure, weather_main, weather_description, cloudiness,
	wind_speed, wind_direction, rainfall, snowfall, visibility,
	collected_at, weather_time, temperature_change, is_abnormal`

func scanObservation(scanner interface{ Scan(...interface{}) error }) (*Observation, error) {
	var o Observation
	err := scanner.Scan(
		&o.ID,
		&o.CityCode,
		&o.CityName,
		&o.Temperature,
		&o.FeelsLike,
		&o.TempMin,
		&o.TempMax,
		&o.Humidity,
		&o.Pressure,
		&o.WeatherMain,
		&o.WeatherDescription,
		&o.Cloudiness,
		&o.WindSpeed,
		&o.WindDirection,
		&o.Rainfall,
		&o.Snowfall,
		&o.Visibility,
		&o.CollectedAt,
		&o.WeatherTime,
		&o.TemperatureChange,
		&o.IsAbnormal,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectObservations(rows *sql.Rows) ([]*Observation, error) {
	defer rows.Close()

	var observations []*Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// SaveObservations inserts a chunk of observations in a single
// transaction. On any failure the whole chunk is rolled back.
func (db *DB) SaveObservations(ctx context.Context, observations []*Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO weather_data (
			city_code, city_name, temperature, feels_like, temp_min, temp_max,
			humidity, pressure, weather_main, weather_description, cloudiness,
			wind_speed, wind_direction, rainfall, snowfall, visibility,
			collected_at, weather_time, temperature_change, is_abnormal
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

	for _, o := range observations {
		err := tx.QueryRowContext(ctx, query,
			o.CityCode, o.CityName, o.Temperature, o.FeelsLike, o.TempMin, o.TempMax,
			o.Humidity, o.Pressure, o.WeatherMain, o.WeatherDescription, o.Cloudiness,
			o.WindSpeed, o.WindDirection, o.Rainfall, o.Snowfall, o.Visibility,
			o.CollectedAt, o.WeatherTime, o.TemperatureChange, o.IsAbnormal,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("failed to insert observation for %s: %w", o.CityCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observations: %w", err)
	}
	return nil
}

// FindLatestByCity returns the most recent observation for a city, or
// nil when the city has none.
func (db *DB) FindLatestByCity(ctx context.Context, cityCode string) (*Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM weather_data
		WHERE city_code = $1
		ORDER BY collected_at DESC
		LIMIT 1
	`

	o, err := scanObservation(db.QueryRowContext(ctx, query, cityCode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observation: %w", err)
	}
	return o, nil
}

// FindByCityBetween returns a city's observations inside the collected_at
// window, newest first.
func (db *DB) FindByCityBetween(ctx context.Context, cityCode string, start, end time.Time) ([]*Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM weather_data
		WHERE city_code = $1 AND collected_at BETWEEN $2 AND $3
		ORDER BY collected_at DESC
	`

	rows, err := db.QueryContext(ctx, query, cityCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	return collectObservations(rows)
}

// FindAbnormal returns all observations flagged as abnormal, newest first.
func (db *DB) FindAbnormal(ctx context.Context) ([]*Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM weather_data
		WHERE is_abnormal = true
		ORDER BY collected_at DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query abnormal observations: %w", err)
	}
	return collectObservations(rows)
}

// FindLatestPerCity returns the newest observation of every city.
func (db *DB) FindLatestPerCity(ctx context.Context) ([]*Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM weather_data w
		WHERE collected_at = (
			SELECT MAX(w2.collected_at) FROM weather_data w2 WHERE w2.city_code = w.city_code
		)
		ORDER BY city_code
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observations: %w", err)
	}
	return collectObservations(rows)
}

// FindCollectedSince returns observations collected after the given
// instant, newest first. The alerts job reads the last 24 hours this way.
func (db *DB) FindCollectedSince(ctx context.Context, since time.Time) ([]*Observation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM weather_data
		WHERE collected_at > $1
		ORDER BY collected_at DESC
	`

	rows, err := db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent observations: %w", err)
	}
	return collectObservations(rows)
}
