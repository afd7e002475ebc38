package domain

import "fmt"

// Plan types known to the router.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"

	// FreeTierModel is the single model available to free and anonymous callers.
	FreeTierModel = "gpt-5-nano"
)

// Entitlement is the caller's subscription-derived permission set. It is owned by
// an external billing system and consumed read-only.
type Entitlement struct {
	UserID        string   `yaml:"user_id" json:"user_id"`
	Authenticated bool     `yaml:"authenticated" json:"authenticated"`
	PlanType      string   `yaml:"plan_type" json:"plan_type"`
	AllowedModels []string `yaml:"allowed_models" json:"allowed_models"`
	MonthlyLimit  int64    `yaml:"monthly_limit" json:"monthly_limit"`
	BonusTokens   int64    `yaml:"bonus_tokens" json:"bonus_tokens"`
	CurrentUsage  int64    `yaml:"current_usage" json:"current_usage"`
}

// IsFreeTier reports whether the caller is restricted to the free-tier model.
// A nil entitlement is an anonymous caller.
func (e *Entitlement) IsFreeTier() bool {
	return e == nil || !e.Authenticated || e.PlanType == "" || e.PlanType == PlanFree
}

// Allows reports whether the caller may use model.
func (e *Entitlement) Allows(model string) bool {
	if model == "" {
		return false
	}
	if e.IsFreeTier() {
		return model == FreeTierModel
	}
	for _, m := range e.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// TotalAvailable is the monthly limit plus bonus tokens.
func (e *Entitlement) TotalAvailable() int64 {
	if e == nil {
		return 0
	}
	return e.MonthlyLimit + e.BonusTokens
}

// Remaining returns the unused token quota, never negative.
func (e *Entitlement) Remaining() int64 {
	if e == nil {
		return 0
	}
	r := e.TotalAvailable() - e.CurrentUsage
	if r < 0 {
		return 0
	}
	return r
}

// CheckQuota fails with ErrQuotaExceeded when tokens would overrun the quota.
// Anonymous callers are not metered.
func (e *Entitlement) CheckQuota(tokens int64) error {
	if e == nil || !e.Authenticated {
		return nil
	}
	if e.CurrentUsage+tokens > e.TotalAvailable() {
		return fmt.Errorf("%w: remaining %d, needed %d", ErrQuotaExceeded, e.Remaining(), tokens)
	}
	return nil
}

// FreeEntitlement returns the built-in free plan for a user.
func FreeEntitlement(userID string) *Entitlement {
	return &Entitlement{
		UserID:        userID,
		Authenticated: userID != "",
		PlanType:      PlanFree,
		AllowedModels: []string{FreeTierModel},
		MonthlyLimit:  300000,
	}
}
