package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// Repository manages persistence for ledger events. Rows are never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	ListByRefundRequestID(ctx context.Context, refundID uuid.UUID) ([]models.LedgerEvent, error)
	HasRefundEntry(ctx context.Context, refundID uuid.UUID, eventType enums.LedgerEventType, party enums.WalletParty) (bool, error)
	Balance(ctx context.Context, party enums.WalletParty, partyID *uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return r.listBy(ctx, "order_id", orderID)
}

func (r *repository) ListByRefundRequestID(ctx context.Context, refundID uuid.UUID) ([]models.LedgerEvent, error) {
	return r.listBy(ctx, "refund_request_id", refundID)
}

// listBy returns entries in append order for one owning row.
func (r *repository) listBy(ctx context.Context, column string, id uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) HasRefundEntry(ctx context.Context, refundID uuid.UUID, eventType enums.LedgerEventType, party enums.WalletParty) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("refund_request_id = ? AND type = ? AND party = ?", refundID, eventType, party).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Balance(ctx context.Context, party enums.WalletParty, partyID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("party = ?", party)
	if partyID == nil {
		query = query.Where("party_id IS NULL")
	} else {
		query = query.Where("party_id = ?", *partyID)
	}
	var total int64
	if err := query.Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
