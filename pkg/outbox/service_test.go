package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type cancelledData struct {
	OrderID uuid.UUID `json:"orderId"`
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	orderID := uuid.New()
	actor := uuid.New()

	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         NewActorRef(actor, nil, enums.ActorRoleCustomer),
		Data:          cancelledData{OrderID: orderID},
	}))

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.Equal(t, rows[0].ID, envelope.ID())
	assert.True(t, envelope.OccurredAt.Equal(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor, envelope.Actor.UserID)
	assert.JSONEq(t, `{"orderId":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRejectsIncompleteEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: "order_exploded", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderCancelled, AggregateType: enums.AggregateOrder}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderCancelled, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Version: EnvelopeVersion + 1}))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitIfNotExistsWritesOnce(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	refundID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventRefundCompleted,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   refundID,
		Data:          map[string]string{"refundId": refundID.String()},
	}

	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))
	require.NoError(t, svc.EmitIfNotExists(context.Background(), conn, event))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", refundID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
