package access

import (
	"time"

	"chilljobs-api/internal/domain/users"
)

// ComputeEffectiveAccessState maps the stored entitlement to FREE or PRO.
// Expiry is only consulted when enforceExpiry is set; otherwise the flag is
// trusted until Stripe sends a cancellation.
func ComputeEffectiveAccessState(now time.Time, u users.User, enforceExpiry bool) AccessState {
	if !u.IsPro {
		return AccessFree
	}
	if enforceExpiry && u.ProExpiresAt != nil && !now.Before(*u.ProExpiresAt) {
		return AccessFree
	}
	return AccessPro
}
