package riders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Repository handles rider persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rider).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}

// Create is used by seeding and tests; rider onboarding lives upstream.
func (r *Repository) Create(ctx context.Context, rider *models.Rider) error {
	if rider.ID == uuid.Nil {
		rider.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rider).Error
}

// SetActiveOrder points the rider at orderID, or clears it when nil.
func (r *Repository) SetActiveOrder(ctx context.Context, riderID uuid.UUID, orderID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", riderID).
		Updates(map[string]any{
			"active_order_id": orderID,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *Repository) UpdateLocation(ctx context.Context, riderID uuid.UUID, point types.GeoPoint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Rider{ID: riderID}).
		Select("current_location", "location_updated_at").
		Updates(&models.Rider{CurrentLocation: &point, LocationUpdatedAt: &at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
