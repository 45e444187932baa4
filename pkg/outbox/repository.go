package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

const (
	maxLastErrorLen = 1024
	retryBaseDelay  = 2 * time.Second
	retryMaxDelay   = 5 * time.Minute
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

func (r *Repository) ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	var count int64
	err := tx.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_type = ? AND aggregate_id = ?", eventType, aggregateType, aggregateID).
		Count(&count).Error
	return count > 0, err
}

// headOfLine keeps an aggregate's events in commit order: a row is only due
// once every older live row of the same aggregate has been published or
// dead-lettered.
const headOfLine = `NOT EXISTS (
	SELECT 1 FROM outbox_events prev
	WHERE prev.aggregate_type = outbox_events.aggregate_type
	  AND prev.aggregate_id = outbox_events.aggregate_id
	  AND prev.published_at IS NULL
	  AND prev.attempt_count < ?
	  AND (prev.created_at < outbox_events.created_at
	    OR (prev.created_at = outbox_events.created_at AND prev.id < outbox_events.id))
)`

// FetchUnpublishedForPublish claims a batch of due rows, at most one per
// aggregate. On postgres the rows are locked with SKIP LOCKED so several
// publishers can drain concurrently.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	query := tx.Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", r.now().UTC()).
		Where(headOfLine, maxAttempts).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit)
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	err := query.Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at":    r.now().UTC(),
			"next_attempt_at": nil,
		}).Error
}

// MarkFailedTx records a retryable failure and schedules the next attempt with
// exponential delay based on the attempt count.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	var row models.OutboxEvent
	if err := tx.Select("attempt_count").Where("id = ?", id).First(&row).Error; err != nil {
		return err
	}
	next := r.now().UTC().Add(retryDelay(row.AttemptCount + 1))
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      truncateError(cause),
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"next_attempt_at": next,
		}).Error
}

// MarkTerminalTx stops further publishing attempts for the row.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      truncateError(cause),
			"attempt_count":   terminalAttempts,
			"next_attempt_at": nil,
		}).Error
}

// DeletePublishedBefore removes published rows older than cutoff.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

func truncateError(err error) *string {
	if err == nil {
		return nil
	}
	msg := truncateUTF8(err.Error(), maxLastErrorLen)
	return &msg
}
