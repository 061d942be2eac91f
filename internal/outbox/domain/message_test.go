package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage("payment.succeeded", `{"payment_id":"abc"}`)

	assert.Equal(t, MessageStatusPending, msg.Status)
	assert.Equal(t, "payment.succeeded", msg.EventType)
	assert.Zero(t, msg.Retries)
	assert.Nil(t, msg.ProcessedAt)
	assert.Nil(t, msg.LastError)
	assert.True(t, msg.IsPending(time.Now().UTC()))
}

func TestMessage_IsPending(t *testing.T) {
	now := time.Now().UTC()
	msg := NewMessage("order.paid", `{}`)

	// Scheduled in the future means not yet due
	msg.ScheduledAt = now.Add(time.Minute)
	assert.False(t, msg.IsPending(now))

	msg.ScheduledAt = now.Add(-time.Minute)
	assert.True(t, msg.IsPending(now))

	// Processed messages are never pending
	msg.MarkProcessed(now)
	assert.False(t, msg.IsPending(now))
}

func TestMessage_MarkProcessed_ClearsLastError(t *testing.T) {
	now := time.Now().UTC()
	msg := NewMessage("order.paid", `{}`)
	errMsg := "smtp timeout"
	msg.LastError = &errMsg

	msg.MarkProcessed(now)

	assert.Equal(t, MessageStatusProcessed, msg.Status)
	assert.NotNil(t, msg.ProcessedAt)
	assert.Nil(t, msg.LastError)
}

func TestMessage_RecordFailure_Backoff(t *testing.T) {
	now := time.Now().UTC()
	base := 10 * time.Second
	max := time.Hour

	msg := NewMessage("order.paid", `{}`)

	msg.RecordFailure("smtp timeout", now, base, max, 10)
	assert.Equal(t, 1, msg.Retries)
	assert.Equal(t, MessageStatusPending, msg.Status)
	assert.Equal(t, now.Add(10*time.Second), msg.ScheduledAt)
	assert.Equal(t, "smtp timeout", *msg.LastError)

	msg.RecordFailure("smtp timeout", now, base, max, 10)
	assert.Equal(t, 2, msg.Retries)
	assert.Equal(t, now.Add(20*time.Second), msg.ScheduledAt)

	msg.RecordFailure("smtp timeout", now, base, max, 10)
	assert.Equal(t, now.Add(40*time.Second), msg.ScheduledAt)
}

func TestMessage_RecordFailure_BackoffCapped(t *testing.T) {
	now := time.Now().UTC()
	msg := NewMessage("order.paid", `{}`)
	msg.Retries = 20

	msg.RecordFailure("sink down", now, 10*time.Second, time.Hour, 100)

	assert.Equal(t, now.Add(time.Hour), msg.ScheduledAt)
}

func TestMessage_RecordFailure_ExhaustsRetryBudget(t *testing.T) {
	now := time.Now().UTC()
	msg := NewMessage("order.paid", `{}`)
	msg.Retries = 9

	msg.RecordFailure("sink down", now, 10*time.Second, time.Hour, 10)

	assert.Equal(t, MessageStatusFailed, msg.Status)
	// Failed messages keep a nil ProcessedAt for manual inspection
	assert.Nil(t, msg.ProcessedAt)
	assert.False(t, msg.IsPending(now.Add(48*time.Hour)))
}
