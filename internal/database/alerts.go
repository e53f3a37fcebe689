package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const alertColumns = `
	id, city_code, city_name, alert_type, alert_level, alert_title,
	alert_message, trigger_value, threshold_value, observation_id,
	alert_time, is_sent, sent_time, is_resolved, resolved_time, created_at`

func scanAlert(scanner interface{ Scan(...interface{}) error }) (*Alert, error) {
	var a Alert
	err := scanner.Scan(
		&a.ID,
		&a.CityCode,
		&a.CityName,
		&a.Type,
		&a.Level,
		&a.Title,
		&a.Message,
		&a.TriggerValue,
		&a.ThresholdValue,
		&a.ObservationID,
		&a.AlertTime,
		&a.IsSent,
		&a.SentTime,
		&a.IsResolved,
		&a.ResolvedTime,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAlerts(rows *sql.Rows) ([]*Alert, error) {
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SaveAlerts inserts a flattened chunk of alerts in one transaction.
func (db *DB) SaveAlerts(ctx context.Context, alerts []*Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO weather_alerts (
			city_code, city_name, alert_type, alert_level, alert_title,
			alert_message, trigger_value, threshold_value, observation_id, alert_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	for _, a := range alerts {
		err := tx.QueryRowContext(ctx, query,
			a.CityCode, a.CityName, a.Type, a.Level, a.Title,
			a.Message, a.TriggerValue, a.ThresholdValue, a.ObservationID, a.AlertTime,
		).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert alert for %s: %w", a.CityCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alerts: %w", err)
	}
	return nil
}

// FindRecentSimilar returns unresolved alerts of the same city and type
// raised after the given instant. A non-empty result suppresses a new
// alert of that kind.
func (db *DB) FindRecentSimilar(ctx context.Context, cityCode string, alertType AlertType, after time.Time) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM weather_alerts
		WHERE city_code = $1 AND alert_type = $2 AND is_resolved = false AND alert_time > $3
	`

	rows, err := db.QueryContext(ctx, query, cityCode, alertType, after)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar alerts: %w", err)
	}
	return collectAlerts(rows)
}

// FindUnresolved returns all unresolved alerts, newest first.
func (db *DB) FindUnresolved(ctx context.Context) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM weather_alerts
		WHERE is_resolved = false
		ORDER BY alert_time DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved alerts: %w", err)
	}
	return collectAlerts(rows)
}

// FindUnsent returns alerts whose notification has not gone out yet,
// oldest first so retries preserve emission order.
func (db *DB) FindUnsent(ctx context.Context) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM weather_alerts
		WHERE is_sent = false
		ORDER BY alert_time ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsent alerts: %w", err)
	}
	return collectAlerts(rows)
}

// FindExpiredUnresolved returns unresolved alerts older than the given
// instant. No job invokes this yet; it exists for a future expiry pass.
func (db *DB) FindExpiredUnresolved(ctx context.Context, before time.Time) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM weather_alerts
		WHERE is_resolved = false AND alert_time < $1
	`

	rows, err := db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired alerts: %w", err)
	}
	return collectAlerts(rows)
}

// MarkAlertSent flags an alert as dispatched. Runs in its own commit,
// outside any chunk transaction.
func (db *DB) MarkAlertSent(ctx context.Context, alertID int64, sentAt time.Time) error {
	query := `
		UPDATE weather_alerts
		SET is_sent = true, sent_time = $1
		WHERE id = $2
	`

	if _, err := db.ExecContext(ctx, query, sentAt, alertID); err != nil {
		return fmt.Errorf("failed to mark alert %d sent: %w", alertID, err)
	}
	return nil
}

// MarkAlertResolved flags an alert as resolved. Resolution is terminal.
func (db *DB) MarkAlertResolved(ctx context.Context, alertID int64, resolvedAt time.Time) error {
	query := `
		UPDATE weather_alerts
		SET is_resolved = true, resolved_time = $1
		WHERE id = $2 AND is_resolved = false
	`

	if _, err := db.ExecContext(ctx, query, resolvedAt, alertID); err != nil {
		return fmt.Errorf("failed to mark alert %d resolved: %w", alertID, err)
	}
	return nil
}
