package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox()

	first, err := o.Add(ctx, "workflow.step.recorded", map[string]string{"testName": "Provider Login"})
	require.NoError(t, err)
	second, err := o.Add(ctx, "workflow.run.reported", map[string]int{"total": 8})
	require.NoError(t, err)
	assert.JSONEq(t, `{"testName":"Provider Login"}`, string(first.Payload))
	assert.Equal(t, OutboxStatusPending, first.Status)

	pending, err := o.GetPendingEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, o.UpdateStatus(ctx, first.ID, OutboxStatusProcessed, nil))
	msg := "redis down"
	require.NoError(t, o.UpdateStatus(ctx, second.ID, OutboxStatusFailed, &msg))

	pending, err = o.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, OutboxStats{Processed: 1, Failed: 1}, o.Stats())
}

func TestMemoryOutboxKeepsPendingOnRetry(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox()
	e, err := o.Add(ctx, "workflow.step.recorded", "x")
	require.NoError(t, err)

	msg := "timeout"
	require.NoError(t, o.UpdateStatus(ctx, e.ID, OutboxStatusPending, &msg))
	pending, err := o.GetPendingEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "timeout", pending[0].Error)
	assert.Equal(t, 1, o.Stats().Pending)
}

func TestMemoryOutboxErrors(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox()

	assert.ErrorIs(t, o.UpdateStatus(ctx, uuid.New(), OutboxStatusProcessed, nil), ErrEventNotFound)

	_, err := o.Add(ctx, "bad", json.RawMessage(`{`))
	assert.Error(t, err)

	e, err := o.Add(ctx, "ok", 1)
	require.NoError(t, err)
	assert.Error(t, o.UpdateStatus(ctx, e.ID, "archived", nil))
}

func TestGetPendingEventsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox()
	_, err := o.Add(ctx, "step", 1)
	require.NoError(t, err)

	pending, _ := o.GetPendingEvents(ctx, 1)
	pending[0].Status = OutboxStatusFailed

	again, _ := o.GetPendingEvents(ctx, 1)
	assert.Equal(t, OutboxStatusPending, again[0].Status)
}
