package users

import "time"

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID           string  `gorm:"primaryKey;type:varchar(36)"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Name         string  `gorm:"not null;default:''"`
	PasswordHash *string `gorm:"column:password_hash"`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`

	// entitlement
	IsPro            bool       `gorm:"column:is_pro;not null;default:false"`
	ProExpiresAt     *time.Time `gorm:"column:pro_expires_at"`
	StripeCustomerID *string    `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerID returns the Stripe customer reference or "".
func (u User) CustomerID() string {
	if u.StripeCustomerID == nil {
		return ""
	}
	return *u.StripeCustomerID
}
