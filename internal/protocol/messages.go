// Package protocol defines the message formats exchanged over Kafka
// between the batch server and the notification consumer.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
)

// AlertNotification is the message published for every dispatched alert.
type AlertNotification struct {
	AlertID        int64     `json:"alert_id"`
	CityCode       string    `json:"city_code"`
	CityName       string    `json:"city_name"`
	AlertType      string    `json:"alert_type"`
	AlertLevel     string    `json:"alert_level"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	TriggerValue   float64   `json:"trigger_value"`
	ThresholdValue float64   `json:"threshold_value"`
	AlertTime      time.Time `json:"alert_time"`
}

// NewAlertNotification builds the notification payload for a saved alert.
func NewAlertNotification(a *database.Alert) *AlertNotification {
	return &AlertNotification{
		AlertID:        a.ID,
		CityCode:       a.CityCode,
		CityName:       a.CityName,
		AlertType:      string(a.Type),
		AlertLevel:     string(a.Level),
		Title:          a.Title,
		Message:        a.Message,
		TriggerValue:   a.TriggerValue,
		ThresholdValue: a.ThresholdValue,
		AlertTime:      a.AlertTime,
	}
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(n *AlertNotification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var n AlertNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
