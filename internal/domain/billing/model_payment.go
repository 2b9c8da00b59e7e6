package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const StatusPaid = "paid"

type Payment struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"index" json:"user_id"`
	PlanKey              string    `gorm:"type:varchar(20)" json:"plan"`
	StripeSessionID      string    `gorm:"uniqueIndex" json:"stripe_session_id"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id,omitempty"`
	AmountEUR            float64   `json:"amount_eur"`
	Currency             string    `gorm:"type:varchar(8)" json:"currency"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record is idempotent on the checkout session id.
func (r *Repository) Record(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).
		Where(Payment{StripeSessionID: p.StripeSessionID}).
		FirstOrCreate(p).Error
}

func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]Payment, error) {
	var list []Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *Repository) ListAll(ctx context.Context) ([]Payment, error) {
	var list []Payment
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

// Revenue sums paid payments created at or after since; a zero since means
// all time.
func (r *Repository) Revenue(ctx context.Context, since time.Time) (float64, error) {
	q := r.db.WithContext(ctx).Model(&Payment{}).Where("status = ?", StatusPaid)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var total float64
	err := q.Select("COALESCE(SUM(amount_eur), 0)").Scan(&total).Error
	return total, err
}
