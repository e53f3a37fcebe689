package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const statisticColumns = `
	id, stat_date, city_code, city_name,
	avg_temperature, max_temperature, min_temperature, temperature_range,
	avg_humidity, avg_pressure, dominant_weather,
	clear_hours, cloudy_hours, rainy_hours,
	abnormal_weather_count, max_temperature_change,
	total_records, data_collection_rate, created_at, updated_at`

func scanStatistic(scanner interface{ Scan(...interface{}) error }) (*DailyStatistic, error) {
	var s DailyStatistic
	err := scanner.Scan(
		&s.ID,
		&s.StatDate,
		&s.CityCode,
		&s.CityName,
		&s.AvgTemperature,
		&s.MaxTemperature,
		&s.MinTemperature,
		&s.TemperatureRange,
		&s.AvgHumidity,
		&s.AvgPressure,
		&s.DominantWeather,
		&s.ClearHours,
		&s.CloudyHours,
		&s.RainyHours,
		&s.AbnormalWeatherCount,
		&s.MaxTemperatureChange,
		&s.TotalRecords,
		&s.DataCollectionRate,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectStatistics(rows *sql.Rows) ([]*DailyStatistic, error) {
	defer rows.Close()

	var stats []*DailyStatistic
	for rows.Next() {
		s, err := scanStatistic(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// UpsertStatistics writes a chunk of daily statistics in one transaction.
// Rows are keyed on (stat_date, city_code); created_at survives updates,
// updated_at is refreshed on every write.
func (db *DB) UpsertStatistics(ctx context.Context, stats []*DailyStatistic) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO weather_statistics (
			stat_date, city_code, city_name,
			avg_temperature, max_temperature, min_temperature, temperature_range,
			avg_humidity, avg_pressure, dominant_weather,
			clear_hours, cloudy_hours, rainy_hours,
			abnormal_weather_count, max_temperature_change,
			total_records, data_collection_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (stat_date, city_code) DO UPDATE
		SET city_name = EXCLUDED.city_name,
		    avg_temperature = EXCLUDED.avg_temperature,
		    max_temperature = EXCLUDED.max_temperature,
		    min_temperature = EXCLUDED.min_temperature,
		    temperature_range = EXCLUDED.temperature_range,
		    avg_humidity = EXCLUDED.avg_humidity,
		    avg_pressure = EXCLUDED.avg_pressure,
		    dominant_weather = EXCLUDED.dominant_weather,
		    clear_hours = EXCLUDED.clear_hours,
		    cloudy_hours = EXCLUDED.cloudy_hours,
		    rainy_hours = EXCLUDED.rainy_hours,
		    abnormal_weather_count = EXCLUDED.abnormal_weather_count,
		    max_temperature_change = EXCLUDED.max_temperature_change,
		    total_records = EXCLUDED.total_records,
		    data_collection_rate = EXCLUDED.data_collection_rate,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	for _, s := range stats {
		err := tx.QueryRowContext(ctx, query,
			s.StatDate, s.CityCode, s.CityName,
			s.AvgTemperature, s.MaxTemperature, s.MinTemperature, s.TemperatureRange,
			s.AvgHumidity, s.AvgPressure, s.DominantWeather,
			s.ClearHours, s.CloudyHours, s.RainyHours,
			s.AbnormalWeatherCount, s.MaxTemperatureChange,
			s.TotalRecords, s.DataCollectionRate,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert statistic for %s: %w", s.CityCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statistics: %w", err)
	}
	return nil
}

// FindStatisticByDateAndCity returns the statistic row for one city and
// date, or nil when none exists yet.
func (db *DB) FindStatisticByDateAndCity(ctx context.Context, date time.Time, cityCode string) (*DailyStatistic, error) {
	query := `
		SELECT ` + statisticColumns + `
		FROM weather_statistics
		WHERE stat_date = $1 AND city_code = $2
	`

	s, err := scanStatistic(db.QueryRowContext(ctx, query, date, cityCode))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query statistic: %w", err)
	}
	return s, nil
}

// FindStatisticsSince returns statistics from the given date on, newest
// date first, city name ascending within a date.
func (db *DB) FindStatisticsSince(ctx context.Context, fromDate time.Time) ([]*DailyStatistic, error) {
	query := `
		SELECT ` + statisticColumns + `
		FROM weather_statistics
		WHERE stat_date >= $1
		ORDER BY stat_date DESC, city_name ASC
	`

	rows, err := db.QueryContext(ctx, query, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	return collectStatistics(rows)
}

// NationalAverageTemperature averages avg_temperature across all cities
// over a date range. Returns nil when no rows fall in the range.
func (db *DB) NationalAverageTemperature(ctx context.Context, startDate, endDate time.Time) (*float64, error) {
	query := `
		SELECT AVG(avg_temperature)
		FROM weather_statistics
		WHERE stat_date BETWEEN $1 AND $2
	`

	var avg *float64
	if err := db.QueryRowContext(ctx, query, startDate, endDate).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to compute national average: %w", err)
	}
	return avg, nil
}
