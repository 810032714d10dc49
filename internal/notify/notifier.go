// Package notify dispatches booking events to external collaborators.
// Dispatch is strictly fire-and-forget: failures are logged and never affect
// booking state.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"ms-reservations/internal/kafka"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type Notifier struct {
	Producer Publisher
	Logger   *logger.Logger
	Enabled  bool
}

func NewNotifier(producer Publisher, log *logger.Logger, enabled bool) *Notifier {
	return &Notifier{Producer: producer, Logger: log, Enabled: enabled}
}

func (n *Notifier) publish(topic, key string, payload any) {
	if !n.Enabled || n.Producer == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		n.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal event for %s: %v", topic, err))
		return
	}
	if err := n.Producer.Publish(topic, key, value); err != nil {
		n.Logger.Error("KAFKA", fmt.Sprintf("failed to publish to %s: %v", topic, err))
		return
	}
	n.Logger.LogKafka("PUBLISH", topic, key)
}

func (n *Notifier) BookingConfirmed(b *models.Booking, actor string, now time.Time) {
	n.publish(kafka.TopicBookingConfirmed, b.ID, models.BookingEvent{
		EventType:  models.EventBookingConfirmed,
		BookingID:  b.ID,
		Status:     b.Status,
		PartySize:  b.PartySize,
		TableIDs:   b.TableIDs,
		StartTime:  b.StartTime,
		Actor:      actor,
		OccurredAt: now,
	})
}

func (n *Notifier) BookingDeclined(b *models.Booking, actor, reason string, now time.Time) {
	n.publish(kafka.TopicBookingDeclined, b.ID, models.BookingEvent{
		EventType:  models.EventBookingDeclined,
		BookingID:  b.ID,
		Status:     b.Status,
		PartySize:  b.PartySize,
		StartTime:  b.StartTime,
		Reason:     reason,
		Actor:      actor,
		OccurredAt: now,
	})
}

func (n *Notifier) BookingTransition(b *models.Booking, prev models.BookingStatus, actor string, now time.Time) {
	n.publish(kafka.TopicBookingLifecycle, b.ID, models.BookingEvent{
		EventType:  models.EventBookingTransition,
		BookingID:  b.ID,
		Status:     b.Status,
		PrevStatus: prev,
		PartySize:  b.PartySize,
		TableIDs:   b.TableIDs,
		StartTime:  b.StartTime,
		Actor:      actor,
		OccurredAt: now,
	})
}

func (n *Notifier) WaitlistPromoted(entry *models.WaitlistEntry, bookingID string, now time.Time) {
	n.publish(kafka.TopicWaitlist, entry.ID, models.WaitlistEvent{
		EventType:  models.EventWaitlistPromoted,
		EntryID:    entry.ID,
		BookingID:  bookingID,
		PartySize:  entry.PartySize,
		OccurredAt: now,
	})
}
