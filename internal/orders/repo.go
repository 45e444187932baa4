package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds an orders repository to the given GORM DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("TrackingHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StoreID != nil {
		query = query.Where("store_id = ?", *filters.StoreID)
	}
	if filters.RiderID != nil {
		query = query.Where("rider_id = ?", *filters.RiderID)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		query = query.Where("created_at < ?", *filters.CreatedTo)
	}
	query, err := pagination.Apply(query, params)
	if err != nil {
		return nil, err
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateOrder inserts an order with its items. Orders arrive from checkout,
// so this is used by seeding and tests.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Version == 0 {
		order.Version = 1
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
	}
	for i := range order.TrackingHistory {
		if order.TrackingHistory[i].ID == uuid.Nil {
			order.TrackingHistory[i].ID = uuid.New()
		}
		order.TrackingHistory[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// UpdateOrderVersioned applies updates only while the row still carries
// version, bumping it by one.
func (r *repository) UpdateOrderVersioned(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) error {
	values := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AppendTrackingEntry inserts entry with the next sequence for its order.
func (r *repository) AppendTrackingEntry(ctx context.Context, entry *models.OrderTrackingEntry) error {
	var last int
	if err := r.db.WithContext(ctx).
		Model(&models.OrderTrackingEntry{}).
		Where("order_id = ?", entry.OrderID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error; err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Sequence = last + 1
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) DeactivateAssignments(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Where("order_id = ? AND active = ?", orderID, true).
		Updates(map[string]any{
			"active":        false,
			"unassigned_at": at,
		}).Error
}
