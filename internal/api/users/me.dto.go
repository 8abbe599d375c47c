package users

import "time"

type MeResponse struct {
	User        UserDTO        `json:"user"`
	Entitlement EntitlementDTO `json:"entitlement"`
	Access      AccessDTO      `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AuthProvider string    `json:"auth_provider"`
	GoogleLinked bool      `json:"google_linked"`
	CreatedAt    time.Time `json:"created_at"`
}

/* ---------- ENTITLEMENT ---------- */

type EntitlementDTO struct {
	IsPro            bool       `json:"is_pro"`
	ProExpiresAt     *time.Time `json:"pro_expires_at"`
	DaysLeft         *int       `json:"days_left"`
	HasStripeAccount bool       `json:"has_stripe_customer"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string   `json:"state"` // free|pro
	Capabilities []string `json:"capabilities"`
	JobLimit     *int     `json:"job_limit"` // null = unlimited
}
