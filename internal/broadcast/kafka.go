package broadcast

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
)

// KafkaPublisher forwards published messages to a Kafka topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// ConnectProducer creates a synchronous producer that waits for all replicas
func ConnectProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 2

	return sarama.NewSyncProducer(brokers, config)
}

// NewKafkaPublisher connects to the brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := ConnectProducer(brokers)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// OnPublish sends the message keyed by its sequence number
func (k *KafkaPublisher) OnPublish(ctx context.Context, msg Message) error {
	res, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(msg.Detections.Header.Seq, 10)),
		Value: sarama.ByteEncoder(res),
	})
	return err
}

// Name returns the subscriber name
func (k *KafkaPublisher) Name() string {
	return "kafka"
}

// Close closes the producer
func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
