package kafka

import (
	"context"

	kafka "github.com/segmentio/kafka-go"
)

// Producer is a thin writer that publishes to any topic. Topic routing lives
// with the caller.
type Producer struct {
	Brokers []string
	writer  *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Brokers: brokers, writer: writer}
}

func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
