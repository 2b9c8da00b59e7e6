package plans

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("plans: not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListActive(ctx context.Context) ([]Plan, error) {
	var list []Plan
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("price_eur ASC").Find(&list).Error
	return list, err
}

func (r *Repository) FindByPriceID(ctx context.Context, priceID string) (Plan, error) {
	var p Plan
	err := r.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrNotFound
	}
	return p, err
}

// Upsert stores p keyed by its Stripe price id and reports whether it was new.
func (r *Repository) Upsert(ctx context.Context, p Plan) (created bool, err error) {
	if p.StripePriceID == nil {
		return false, errors.New("plans: upsert needs a stripe price id")
	}
	existing, err := r.FindByPriceID(ctx, *p.StripePriceID)
	switch {
	case errors.Is(err, ErrNotFound):
		return true, r.db.WithContext(ctx).Create(&p).Error
	case err != nil:
		return false, err
	}
	existing.Key = p.Key
	existing.Name = p.Name
	existing.PriceEUR = p.PriceEUR
	existing.Interval = p.Interval
	existing.Active = p.Active
	return false, r.db.WithContext(ctx).Save(&existing).Error
}

// EnsureFree seeds the free plan so the pricing page always lists it.
func (r *Repository) EnsureFree(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Plan{}).Where("key = ?", KeyFree).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&Plan{Key: KeyFree, Name: "Free", Interval: "month", Active: true}).Error
}
