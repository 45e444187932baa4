package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
)

const (
	maxDLQErrorLen  = 1024
	defaultDLQLimit = 50
	maxDLQListLimit = 500
)

// DLQFilter narrows a dead-letter listing. Zero values match everything.
type DLQFilter struct {
	EventType enums.OutboxEventType
	Reason    enums.OutboxDLQErrorReason
	Limit     int
}

type DLQRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db, now: time.Now}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = r.now().UTC()
	}
	if entry.ErrorMessage != nil {
		msg := truncateUTF8(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns dead letters newest first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultDLQLimit
	case limit > maxDLQListLimit:
		limit = maxDLQListLimit
	}
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Reason != "" {
		query = query.Where("error_reason = ?", filter.Reason)
	}
	var rows []models.OutboxDLQ
	err := query.Order("failed_at DESC").Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Requeue moves a dead letter back into the publish queue. The original outbox
// row is reset when it still exists and rebuilt from the dead-letter payload
// otherwise. The dead-letter row is removed in the same transaction.
func (r *DLQRepository) Requeue(ctx context.Context, id uuid.UUID) (models.OutboxEvent, error) {
	var requeued models.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxDLQ
		if err := tx.Where("id = ?", id).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
			}
			return fmt.Errorf("load dead letter %s: %w", id, err)
		}

		now := r.now().UTC()
		var event models.OutboxEvent
		err := tx.Where("id = ?", entry.EventID).First(&event).Error
		switch {
		case err == nil:
			if event.PublishedAt != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "event already published")
			}
			if err := tx.Model(&models.OutboxEvent{}).
				Where("id = ?", event.ID).
				Updates(map[string]any{
					"attempt_count":   0,
					"last_error":      nil,
					"next_attempt_at": now,
				}).Error; err != nil {
				return fmt.Errorf("reset outbox event %s: %w", event.ID, err)
			}
			event.AttemptCount = 0
			event.LastError = nil
			event.NextAttemptAt = &now
		case errors.Is(err, gorm.ErrRecordNotFound):
			event = models.OutboxEvent{
				ID:            entry.EventID,
				EventType:     entry.EventType,
				AggregateType: entry.AggregateType,
				AggregateID:   entry.AggregateID,
				Payload:       entry.Payload,
				NextAttemptAt: &now,
			}
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("rebuild outbox event %s: %w", entry.EventID, err)
			}
		default:
			return fmt.Errorf("load outbox event %s: %w", entry.EventID, err)
		}

		if err := tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error; err != nil {
			return fmt.Errorf("delete dead letter %s: %w", entry.ID, err)
		}
		requeued = event
		return nil
	})
	return requeued, err
}

// DeleteFailedBefore purges dead letters older than cutoff.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("failed_at < ?", cutoff).
		Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
