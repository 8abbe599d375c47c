package users

import (
	"time"

	"chilljobs-api/internal/domain/access"
	"chilljobs-api/internal/domain/users"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		AuthProvider: u.AuthProvider,
		GoogleLinked: u.GoogleSub != nil && *u.GoogleSub != "",
		CreatedAt:    u.CreatedAt,
	}
}

func BuildEntitlementDTO(now time.Time, u users.User) EntitlementDTO {
	return EntitlementDTO{
		IsPro:            u.IsPro,
		ProExpiresAt:     u.ProExpiresAt,
		DaysLeft:         daysLeft(now, u),
		HasStripeAccount: u.CustomerID() != "",
	}
}

func daysLeft(now time.Time, u users.User) *int {
	if !u.IsPro || u.ProExpiresAt == nil {
		return nil
	}
	d := 0
	if now.Before(*u.ProExpiresAt) {
		d = int(u.ProExpiresAt.Sub(now).Hours() / 24)
	}
	return &d
}

func BuildAccessDTO(p access.Policy) AccessDTO {
	dto := AccessDTO{
		State:        string(p.State),
		Capabilities: p.Capabilities,
	}
	if p.JobLimit > 0 {
		limit := p.JobLimit
		dto.JobLimit = &limit
	}
	return dto
}
