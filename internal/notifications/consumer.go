package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
)

const inboxConsumer = "notification-inbox"

type inboxWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

// Receiver is the part of a Pub/Sub subscriber the consumer drives.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns notification_requested events into inbox rows.
type Consumer struct {
	repo         inboxWriter
	subscription Receiver
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the inbox consumer.
func NewConsumer(repo inboxWriter, subscription Receiver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

var errMalformed = errors.New("malformed notification request")

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Debug(logCtx, "skipping non-notification event")
		return processResult{}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}
	eventID := envelope.ID()
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, inboxConsumer, eventID.String())
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.handle(ctx, logCtx, eventID, envelope.Data); err != nil {
		if errors.Is(err, errMalformed) {
			// redelivery cannot fix the payload, keep the claim and drop it
			c.logg.Error(logCtx, "dropping notification request", err)
			return processResult{}
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		if relErr := c.idempotency.Release(ctx, inboxConsumer, eventID.String()); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", relErr)
		}
		return processResult{nack: true}
	}
	return processResult{}
}

func (c *Consumer) handle(ctx, logCtx context.Context, eventID uuid.UUID, data json.RawMessage) error {
	var req payloads.NotificationRequestedEvent
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if req.RecipientID == uuid.Nil || req.OrderID == uuid.Nil {
		return fmt.Errorf("%w: recipient and order are required", errMalformed)
	}
	text, err := render(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	notification := &models.Notification{
		EventID:       eventID,
		OrderID:       req.OrderID,
		RecipientRole: req.RecipientRole,
		RecipientID:   req.RecipientID,
		Template:      req.Template,
		Title:         text.Title,
		Message:       text.Message,
		Link:          &text.Link,
		Data:          req.Data,
	}
	created, err := c.repo.Create(ctx, notification)
	if err != nil {
		return err
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id":       req.OrderID.String(),
		"recipient_role": string(req.RecipientRole),
		"template":       string(req.Template),
	})
	if !created {
		c.logg.Info(logCtx, "notification already stored")
		return nil
	}
	c.logg.Info(logCtx, "notification stored")
	return nil
}
