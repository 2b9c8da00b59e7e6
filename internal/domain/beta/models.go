// Package beta models the invitation wall: access codes with bounded use and
// the registration requests people file while waiting for one.
package beta

import "time"

type Code struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Code      string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	MaxUses   int        `gorm:"not null;default:1" json:"max_uses"` // 0 = unlimited
	Uses      int        `gorm:"not null;default:0" json:"uses"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

const (
	RegistrationPending  = "pending"
	RegistrationInvited  = "invited"
	RegistrationDeclined = "declined"
)

type Registration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role,omitempty"`
	UseCase   string    `gorm:"type:text" json:"use_case,omitempty"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
