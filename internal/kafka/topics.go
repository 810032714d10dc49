package kafka

import (
	"net"
	"strconv"

	kafka "github.com/segmentio/kafka-go"
)

const (
	TopicBookingConfirmed = "reservations.booking.confirmed"
	TopicBookingDeclined  = "reservations.booking.declined"
	TopicBookingLifecycle = "reservations.booking.lifecycle"
	TopicWaitlist         = "reservations.waitlist"
)

// AllTopics lists every topic the engine publishes to.
var AllTopics = []string{
	TopicBookingConfirmed,
	TopicBookingDeclined,
	TopicBookingLifecycle,
	TopicWaitlist,
}

// EnsureTopicsExist creates the given topics if the broker does not have them
// yet. Used at startup so first publishes don't race topic auto-creation.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return controllerConn.CreateTopics(configs...)
}
