package plans

type Plan struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Key           string  `gorm:"type:varchar(20);not null;index" json:"key"` // free|pro
	Name          string  `json:"name"`
	PriceEUR      float64 `json:"price_eur"`
	StripePriceID *string `gorm:"column:stripe_price_id;uniqueIndex:idx_plans_stripe_price_id" json:"stripe_price_id,omitempty"`
	Interval      string  `json:"interval"`
	Active        bool    `gorm:"not null;default:true" json:"-"`
}
