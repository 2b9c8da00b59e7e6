package access

import (
	"time"

	"mailforge/internal/domain/users"
)

type Limits struct {
	DailyGenerations int  `json:"daily_generations"`
	MaxBookmarks     int  `json:"max_bookmarks"`
	ShowBranding     bool `json:"show_branding"`
}

type Policy struct {
	State        AccessState
	Plan         string
	Capabilities []string
	Limits       *Limits
}

// LimitsFor returns nil when the state has no caps.
func LimitsFor(state AccessState) *Limits {
	switch state {
	case AccessFree:
		return &Limits{DailyGenerations: 5, MaxBookmarks: 0, ShowBranding: true}
	case AccessWaitlist:
		return &Limits{ShowBranding: true}
	}
	return nil
}

func ComputePolicy(now time.Time, u users.User, betaEnabled bool) Policy {
	state := ComputeEffectiveAccessState(now, u, betaEnabled)

	return Policy{
		State:        state,
		Plan:         EffectivePlan(now, u),
		Capabilities: CapabilitiesFor(state),
		Limits:       LimitsFor(state),
	}
}
