package beta

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrAlreadyRegistered    = errors.New("email already registered for the beta")
	ErrRegistrationNotFound = errors.New("registration not found")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateCode(ctx context.Context, c *Code) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) ListCodes(ctx context.Context) ([]Code, error) {
	var list []Code
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *Repository) FindCode(ctx context.Context, code string) (Code, error) {
	var c Code
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, ErrCodeNotFound
	}
	return c, err
}

// Redeem consumes one use of code and grants beta access to userID in one
// transaction. The use counter is incremented with a guarded UPDATE so two
// concurrent redemptions cannot exceed MaxUses.
func (r *Repository) Redeem(ctx context.Context, code string, userID uint, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Code{}).
			Where("code = ? AND active = ?", code, true).
			Where("expires_at IS NULL OR expires_at > ?", now).
			Where("max_uses = 0 OR uses < max_uses").
			UpdateColumn("uses", gorm.Expr("uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var c Code
			if err := tx.Where("code = ?", code).First(&c).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCodeNotFound
				}
				return err
			}
			if err := c.Redeemable(now); err != nil {
				return err
			}
			return ErrCodeExhausted
		}

		return tx.Table("users").Where("id = ?", userID).Updates(map[string]any{
			"beta_access":      true,
			"beta_code":        code,
			"beta_redeemed_at": now,
		}).Error
	})
}

func (r *Repository) CreateRegistration(ctx context.Context, reg *Registration) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Registration{}).Where("email = ?", reg.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyRegistered
	}
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *Repository) ListRegistrations(ctx context.Context, status string) ([]Registration, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []Registration
	err := q.Find(&list).Error
	return list, err
}

func (r *Repository) SetRegistrationStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&Registration{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *Repository) FindRegistration(ctx context.Context, id uint) (Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

type Stats struct {
	Codes         int64            `json:"codes"`
	Redemptions   int64            `json:"redemptions"`
	Registrations map[string]int64 `json:"registrations"`
	UsersWithBeta int64            `json:"users_with_beta"`
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	db := r.db.WithContext(ctx)
	st := Stats{Registrations: map[string]int64{}}

	if err := db.Model(&Code{}).Count(&st.Codes).Error; err != nil {
		return st, err
	}
	if err := db.Model(&Code{}).Select("COALESCE(SUM(uses), 0)").Scan(&st.Redemptions).Error; err != nil {
		return st, err
	}
	if err := db.Table("users").Where("beta_access = ?", true).Count(&st.UsersWithBeta).Error; err != nil {
		return st, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&Registration{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return st, err
	}
	for _, row := range rows {
		st.Registrations[row.Status] = row.Count
	}
	return st, nil
}
