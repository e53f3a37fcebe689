// Package notification dispatches saved alerts: the batch server
// publishes them to Kafka and the notification consumer turns them into
// emails.
package notification

import (
	"context"
	"fmt"

	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/protocol"
	"github.com/jbkim/weather-batch/internal/queue"
)

// KafkaDispatcher publishes one notification message per alert, keyed by
// city code so a city's alerts stay ordered within a partition.
type KafkaDispatcher struct {
	producer *queue.Producer
}

func NewKafkaDispatcher(producer *queue.Producer) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer}
}

func (d *KafkaDispatcher) Notify(ctx context.Context, alert *database.Alert) error {
	data, err := protocol.EncodeAlertNotification(protocol.NewAlertNotification(alert))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return d.producer.Publish(ctx, alert.CityCode, data)
}
