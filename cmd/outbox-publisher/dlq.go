package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/outbox"
)

type dlqAdmin interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, id uuid.UUID) (models.OutboxEvent, error)
}

// dlqCommand is the operator surface for dead letters. It runs instead of the
// publish loop when one of its flags is set.
type dlqCommand struct {
	list      bool
	requeue   string
	eventType string
	reason    string
	limit     int
}

func (c *dlqCommand) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.list, "dlq-list", false, "print dead letters as JSON lines and exit")
	fs.StringVar(&c.requeue, "dlq-requeue", "", "move the dead letter with this id back into the outbox and exit")
	fs.StringVar(&c.eventType, "dlq-event-type", "", "filter -dlq-list by event type")
	fs.StringVar(&c.reason, "dlq-reason", "", "filter -dlq-list by failure reason")
	fs.IntVar(&c.limit, "dlq-limit", 50, "max rows printed by -dlq-list")
}

func (c *dlqCommand) active() bool {
	return c.list || c.requeue != ""
}

type dlqLine struct {
	ID           uuid.UUID `json:"id"`
	EventID      uuid.UUID `json:"eventId"`
	EventType    string    `json:"eventType"`
	AggregateID  uuid.UUID `json:"aggregateId"`
	Reason       string    `json:"reason"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	AttemptCount int       `json:"attemptCount"`
	FailedAt     string    `json:"failedAt"`
}

func (c *dlqCommand) run(ctx context.Context, repo dlqAdmin, out io.Writer) error {
	if c.requeue != "" {
		id, err := uuid.Parse(c.requeue)
		if err != nil {
			return fmt.Errorf("invalid -dlq-requeue id: %w", err)
		}
		event, err := repo.Requeue(ctx, id)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "requeued dead letter %s as outbox event %s (%s)\n", id, event.ID, event.EventType)
		return err
	}

	filter := outbox.DLQFilter{Limit: c.limit}
	if c.eventType != "" {
		eventType, err := enums.ParseOutboxEventType(c.eventType)
		if err != nil {
			return err
		}
		filter.EventType = eventType
	}
	if c.reason != "" {
		reason := enums.OutboxDLQErrorReason(c.reason)
		if !reason.IsValid() {
			return fmt.Errorf("invalid dlq reason %q", c.reason)
		}
		filter.Reason = reason
	}
	rows, err := repo.List(ctx, filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, row := range rows {
		line := dlqLine{
			ID:           row.ID,
			EventID:      row.EventID,
			EventType:    string(row.EventType),
			AggregateID:  row.AggregateID,
			Reason:       string(row.ErrorReason),
			AttemptCount: row.AttemptCount,
			FailedAt:     row.FailedAt.UTC().Format(time.RFC3339),
		}
		if row.ErrorMessage != nil {
			line.ErrorMessage = *row.ErrorMessage
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
