package protocol

import (
	"testing"
	"time"

	"github.com/jbkim/weather-batch/internal/database"
)

func TestAlertNotificationFromAlert(t *testing.T) {
	alertTime := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)
	alert := &database.Alert{
		ID:             17,
		CityCode:       "Seoul",
		CityName:       "서울",
		Type:           database.AlertTypeHeatWave,
		Level:          database.AlertLevelWarning,
		Title:          "서울 폭염 경보",
		Message:        "현재 기온이 37.5°C로 폭염 기준(35.0°C)을 초과했습니다.",
		TriggerValue:   37.5,
		ThresholdValue: 35.0,
		AlertTime:      alertTime,
	}

	data, err := EncodeAlertNotification(NewAlertNotification(alert))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeAlertNotification(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.AlertID != 17 {
		t.Errorf("Expected alert id 17, got %d", decoded.AlertID)
	}
	if decoded.AlertType != "HEAT_WAVE" || decoded.AlertLevel != "WARNING" {
		t.Errorf("Unexpected type/level: %s/%s", decoded.AlertType, decoded.AlertLevel)
	}
	if decoded.Title != alert.Title {
		t.Errorf("Unexpected title: %s", decoded.Title)
	}
	if !decoded.AlertTime.Equal(alertTime) {
		t.Errorf("Unexpected alert time: %v", decoded.AlertTime)
	}
}

func TestDecodeAlertNotificationRejectsGarbage(t *testing.T) {
	if _, err := DecodeAlertNotification([]byte("not json")); err == nil {
		t.Fatal("Expected decode error")
	}
}
