package refunds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

// committedStatuses count against an order's refundable balance.
var committedStatuses = []enums.RefundRequestStatus{
	enums.RefundRequestApproved,
	enums.RefundRequestProcessing,
	enums.RefundRequestCompleted,
}

// Repository handles refund request persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, refund *models.RefundRequest) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

// FindOrder loads the order a refund refers to.
func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListFilters narrows the admin refund queue.
type ListFilters struct {
	Status     *enums.RefundRequestStatus
	OrderID    *uuid.UUID
	CustomerID *uuid.UUID
	StoreID    *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.RefundRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.RefundRequest{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.StoreID != nil {
		query = query.Where("store_id = ?", *filters.StoreID)
	}
	query, err := pagination.Apply(query, params)
	if err != nil {
		return nil, err
	}
	var rows []models.RefundRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSettleable returns the oldest approved refunds plus processing refunds
// whose claim was taken before staleBefore, up to limit.
func (r *Repository) ListSettleable(ctx context.Context, staleBefore time.Time, limit int) ([]models.RefundRequest, error) {
	var rows []models.RefundRequest
	if err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND (processed_at IS NULL OR processed_at < ?))",
			enums.RefundRequestApproved, enums.RefundRequestProcessing, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimForSettlement moves an approved refund, or a processing refund whose
// claim predates staleBefore, to processing stamped at claimedAt. It reports
// whether this caller holds the claim.
func (r *Repository) ClaimForSettlement(ctx context.Context, id uuid.UUID, staleBefore, claimedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND (status = ? OR (status = ? AND (processed_at IS NULL OR processed_at < ?)))",
			id, enums.RefundRequestApproved, enums.RefundRequestProcessing, staleBefore).
		Updates(map[string]any{
			"status":       enums.RefundRequestProcessing,
			"processed_at": claimedAt,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LockOrder holds the order row until the surrounding transaction ends so
// balance checks against it serialize. Only postgres takes the row lock.
func (r *Repository) LockOrder(ctx context.Context, orderID uuid.UUID) error {
	var locked struct{ ID uuid.UUID }
	return r.lockOrderQuery(ctx, orderID).Take(&locked).Error
}

func (r *Repository) lockOrderQuery(ctx context.Context, orderID uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("id").
		Where("id = ?", orderID)
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// CommittedCents sums approved, processing and completed refunds of an order,
// excluding one refund id when set.
func (r *Repository) CommittedCents(ctx context.Context, orderID uuid.UUID, exclude *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("order_id = ? AND status IN ?", orderID, committedStatuses)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var total int64
	if err := query.Select("COALESCE(SUM(approved_amount_cents), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// TransitionFrom writes the selected columns of patch only while the refund
// is in one of from. It reports whether the row was updated.
func (r *Repository) TransitionFrom(ctx context.Context, id uuid.UUID, from []enums.RefundRequestStatus, patch *models.RefundRequest, columns ...string) (bool, error) {
	patch.UpdatedAt = time.Now().UTC()
	columns = append(columns, "status", "updated_at")
	res := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Select(columns).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
