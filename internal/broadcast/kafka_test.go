package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_SendsEncodedMessage(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg Message
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Topic != "tag_detections" || msg.Detections.Len() != 1 {
			return fmt.Errorf("unexpected message %+v", msg)
		}
		return nil
	})

	publisher := NewKafkaPublisherWithProducer(producer, "apriltags")
	defer publisher.Close()

	err := publisher.OnPublish(context.Background(), Message{Topic: "tag_detections", Detections: sampleDetections()})
	require.NoError(t, err)
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisherWithProducer(producer, "apriltags")
	defer publisher.Close()

	err := publisher.OnPublish(context.Background(), Message{Topic: "tag_detections", Detections: sampleDetections()})
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
}
