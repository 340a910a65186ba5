// Package retention implements age- and status-based cleanup of
// provisioned ML resources.
package retention

import (
	"fmt"
	"time"

	"github.com/verdin/sagecycle/types"
)

// Policy decides which resources of one type are deletable. The status
// set is an allow-list: anything not explicitly listed, including
// unknown statuses, is never eligible.
type Policy struct {
	RetentionDays    int            `yaml:"days" json:"days"`
	EligibleStatuses []types.Status `yaml:"statuses" json:"statuses"`
}

// Validate rejects unusable policies before any listing happens.
func (p Policy) Validate() error {
	if p.RetentionDays < 0 {
		return fmt.Errorf("retention days must be >= 0, got %d", p.RetentionDays)
	}
	if len(p.EligibleStatuses) == 0 {
		return fmt.Errorf("eligible status set is empty, policy would delete nothing")
	}
	for _, s := range p.EligibleStatuses {
		if !s.IsTerminal() {
			return fmt.Errorf("status %s is not terminal and cannot be cleanup-eligible", s)
		}
	}
	return nil
}

// allowsStatus checks membership in the allow-list.
func (p Policy) allowsStatus(s types.Status) bool {
	for _, allowed := range p.EligibleStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Decision is the outcome of evaluating one resource against a policy.
// Decisions are derived per run and never persisted beyond the run's
// journal entries and summary.
type Decision struct {
	Resource types.Resource `json:"resource"`
	Eligible bool           `json:"eligible"`
	Reason   string         `json:"reason"`
}

// Evaluate applies the eligibility rule: a resource is eligible iff it
// is at least RetentionDays old AND its status is in the allow-list.
// Pure function; same inputs always produce the same decision.
func Evaluate(res types.Resource, policy Policy, now time.Time) Decision {
	age := res.Age(now)
	minAge := time.Duration(policy.RetentionDays) * 24 * time.Hour

	if age < minAge {
		return Decision{
			Resource: res,
			Eligible: false,
			Reason:   fmt.Sprintf("age %s below retention %dd", age.Round(time.Hour), policy.RetentionDays),
		}
	}
	if !policy.allowsStatus(res.Status) {
		return Decision{
			Resource: res,
			Eligible: false,
			Reason:   fmt.Sprintf("status %s not in eligible set", res.Status),
		}
	}
	return Decision{
		Resource: res,
		Eligible: true,
		Reason:   fmt.Sprintf("age %s >= %dd and status %s eligible", age.Round(time.Hour), policy.RetentionDays, res.Status),
	}
}
