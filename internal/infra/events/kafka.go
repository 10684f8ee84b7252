package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// *kafka.Writerが満たす（テストでは差し替える）
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaOrderPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaOrderPublisher(brokers []string, topic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
		},
	}
}

// キーはorder_id（同じ注文のイベントは同じパーティションへ）
func (p *KafkaOrderPublisher) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order created: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.OrderID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.created")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}
