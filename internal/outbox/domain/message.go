// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus represents the delivery status of an outbox message
type MessageStatus string

const (
	// MessageStatusPending marks a message awaiting delivery.
	MessageStatusPending MessageStatus = "pending"
	// MessageStatusProcessed marks a message that was delivered to its sink.
	MessageStatusProcessed MessageStatus = "processed"
	// MessageStatusFailed marks a message whose retry budget is exhausted.
	// ProcessedAt stays nil so the message remains visible for manual inspection;
	// the relay never silently drops messages.
	MessageStatusFailed MessageStatus = "failed"
)

// Message represents one unit of work in the transactional outbox. It is created
// in the same database transaction as the aggregate mutation that produced it and
// is mutated only by the relay afterwards.
type Message struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      MessageStatus
	Retries     int
	LastError   *string
	ScheduledAt time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMessage creates a pending message due for immediate delivery.
func NewMessage(eventType string, payload string) *Message {
	return &Message{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   eventType,
		Payload:     payload,
		Status:      MessageStatusPending,
		Retries:     0,
		ScheduledAt: time.Now().UTC(),
	}
}

// IsPending reports whether the message is due for delivery at the given time.
func (m *Message) IsPending(now time.Time) bool {
	return m.ProcessedAt == nil && m.Status == MessageStatusPending && !m.ScheduledAt.After(now)
}

// MarkProcessed records a successful delivery. Safe to call more than once.
func (m *Message) MarkProcessed(now time.Time) {
	m.Status = MessageStatusProcessed
	m.ProcessedAt = &now
	m.LastError = nil
}

// RecordFailure increments the retry bookkeeping and reschedules the message with
// bounded exponential backoff (base * 2^retries, capped at max). Once maxRetries
// is exceeded the message is parked as failed.
func (m *Message) RecordFailure(errMsg string, now time.Time, base, max time.Duration, maxRetries int) {
	m.Retries++
	m.LastError = &errMsg
	m.ScheduledAt = now.Add(backoff(base, max, m.Retries))

	if m.Retries >= maxRetries {
		m.Status = MessageStatusFailed
	}
}

// backoff computes base * 2^(retries-1) capped at max.
func backoff(base, max time.Duration, retries int) time.Duration {
	d := base
	for i := 1; i < retries; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
