package credits

import "time"

const (
	defaultPlan  = "free"
	defaultLimit = 30
	resetPeriod  = 30 * 24 * time.Hour
)

func defaultBalance() Balance {
	return Balance{
		Plan:     defaultPlan,
		Limit:    defaultLimit,
		Used:     0,
		ResetsAt: time.Now().UTC().Add(resetPeriod),
	}
}
