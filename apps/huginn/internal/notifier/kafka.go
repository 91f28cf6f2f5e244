package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/events"
	"huginn/apps/huginn/internal/model"
)

// producer is the part of *kafka.Producer used here.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Close()
}

// KafkaNotifier publishes every notification as an events.NotificationEvent and waits for the
// broker acknowledgement.
type KafkaNotifier struct {
	logger        *zap.Logger
	kafkaProducer producer
	kafkaTopic    string
}

func NewKafkaNotifier(kafkaBroker, kafkaTopic string, logger *zap.Logger) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaNotifier{
		logger:        logger,
		kafkaProducer: p,
		kafkaTopic:    kafkaTopic,
	}, nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, n model.Notification) error {
	msgBytes, err := encodeNotification(n)
	if err != nil {
		return err
	}

	// Buffered so a late delivery report never blocks the producer after ctx is done.
	deliveryChan := make(chan kafka.Event, 1)

	err = k.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            []byte(n.Address),
		Value:          msgBytes,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				return ev.TopicPartition.Error
			}
			k.logger.Debug("Published notification to Kafka",
				zap.String("id", n.ID),
				zap.String("wallet_address", n.Address))
			return nil
		default:
			return fmt.Errorf("unexpected kafka event type: %T", e)
		}
	}
}

func (k *KafkaNotifier) Close() error {
	if k.kafkaProducer != nil {
		k.kafkaProducer.Close()
	}
	return nil
}

func encodeNotification(n model.Notification) ([]byte, error) {
	msg := events.NotificationEvent{
		ID:            n.ID,
		EventType:     string(n.Kind),
		SubscriberID:  n.SubscriberID,
		Network:       n.Network,
		WalletAddress: n.Address,
		Identifiers:   n.Identifiers,
		Text:          n.Text,
		CreatedAt:     n.CreatedAt,
		Timestamp:     time.Now(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return b, nil
}
