// Package repository holds the outbox that buffers run results until the
// publisher has delivered them.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

var ErrEventNotFound = errors.New("outbox event not found")

// OutboxEvent is one queued message.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
	Status    OutboxStatus    `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// OutboxRepository is what pkg/worker needs from an outbox.
type OutboxRepository interface {
	Add(ctx context.Context, eventType string, payload interface{}) (*OutboxEvent, error)
	GetPendingEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OutboxStatus, errMsg *string) error
}

// OutboxStats counts events by final state.
type OutboxStats struct {
	Pending   int
	Processed int
	Failed    int
}

// MemoryOutbox keeps pending events in insertion order. Settled events are
// dropped and only counted.
type MemoryOutbox struct {
	mu      sync.Mutex
	pending []*OutboxEvent
	stats   OutboxStats
	now     func() time.Time
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{now: time.Now}
}

func (o *MemoryOutbox) Add(ctx context.Context, eventType string, payload interface{}) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	e := &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Status:    OutboxStatusPending,
		CreatedAt: o.now(),
	}
	o.pending = append(o.pending, e)
	o.stats.Pending++
	v := *e
	return &v, nil
}

// GetPendingEvents returns copies of the oldest pending events.
func (o *MemoryOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*OutboxEvent, n)
	for i := 0; i < n; i++ {
		v := *o.pending[i]
		out[i] = &v
	}
	return out, nil
}

func (o *MemoryOutbox) UpdateStatus(ctx context.Context, id uuid.UUID, status OutboxStatus, errMsg *string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.pending {
		if e.ID != id {
			continue
		}
		switch status {
		case OutboxStatusPending:
			if errMsg != nil {
				e.Error = *errMsg
			}
			return nil
		case OutboxStatusProcessed:
			o.stats.Processed++
		case OutboxStatusFailed:
			o.stats.Failed++
		default:
			return fmt.Errorf("unknown outbox status %q", status)
		}
		o.pending = append(o.pending[:i], o.pending[i+1:]...)
		o.stats.Pending--
		return nil
	}
	return ErrEventNotFound
}

func (o *MemoryOutbox) Stats() OutboxStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}
