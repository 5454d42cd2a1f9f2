// Package credits tracks per-owner analysis allowances with a rolling
// period reset. One successful analysis costs one credit.
package credits

import "time"

// AnalysisCost is the fixed credit cost of one successful analysis.
const AnalysisCost = 1

// Balance is an owner's allowance snapshot.
type Balance struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns the credits still available in the period.
func (b Balance) Remaining() int {
	if b.Used >= b.Limit {
		return 0
	}
	return b.Limit - b.Used
}
