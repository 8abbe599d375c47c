package access

import (
	"time"

	"chilljobs-api/internal/domain/users"
)

type Policy struct {
	State        AccessState
	JobLimit     int
	Capabilities []string
}

func ComputePolicy(now time.Time, u users.User, enforceExpiry bool) Policy {
	state := ComputeEffectiveAccessState(now, u, enforceExpiry)

	return Policy{
		State:        state,
		JobLimit:     JobLimitFor(state),
		Capabilities: CapabilitiesFor(state, u.CustomerID() != ""),
	}
}

// AnonymousPolicy applies to callers without a session.
func AnonymousPolicy() Policy {
	return Policy{
		State:        AccessFree,
		JobLimit:     FreeJobLimit,
		Capabilities: []string{},
	}
}
