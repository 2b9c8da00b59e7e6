package users

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("users: not found")

// Repository is the gorm-backed store for users and their one-off tokens.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repository) Save(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *Repository) Update(ctx context.Context, id uint, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return u, notFound(err)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, notFound(err)
}

func (r *Repository) FindByOIDCSubject(ctx context.Context, sub string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("oidc_subject = ?", sub).First(&u).Error
	return u, notFound(err)
}

func (r *Repository) FindBySubscriptionID(ctx context.Context, subID string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("subscription_id = ?", subID).First(&u).Error
	return u, notFound(err)
}

func (r *Repository) List(ctx context.Context) ([]User, error) {
	var list []User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

// CountByPlan returns the number of users per stored plan key.
func (r *Repository) CountByPlan(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Plan  string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&User{}).
		Select("plan, COUNT(id) AS count").
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Plan] = row.Count
	}
	return out, nil
}

// ReplaceToken deletes the user's tokens of the same type and stores t.
func (r *Repository) ReplaceToken(ctx context.Context, t *VerificationToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND type = ?", t.UserID, t.Type).Delete(&VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *Repository) FindToken(ctx context.Context, token, typ string) (VerificationToken, error) {
	var t VerificationToken
	err := r.db.WithContext(ctx).Where("token = ? AND type = ?", token, typ).First(&t).Error
	return t, notFound(err)
}

func (r *Repository) DeleteToken(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&VerificationToken{}, id).Error
}
