package domain

import "time"

// Plan names. There are exactly two: the free tier and the paid one.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Subscription statuses mirrored from the billing provider.
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
)

const (
	// Unlimited marks a quota field as having no limit.
	Unlimited int64 = -1

	// FreeMaxLinks is the lifetime link-creation quota of the free plan.
	FreeMaxLinks int64 = 5

	// FreeMaxFileBytes is the total file storage quota of the free plan (10 MiB).
	FreeMaxFileBytes int64 = 10 * 1024 * 1024

	// AdCreditReward is how many credits a single rewarded-ad view grants.
	AdCreditReward int64 = 2
)

// PlanLimits is the quota projection derived from a plan name.
// It is cached on the account record but the plan is the source of truth.
type PlanLimits struct {
	MaxLinks    int64
	MaxFileSize int64
}

// LimitsForPlan derives the quota projection for a plan.
func LimitsForPlan(plan string) PlanLimits {
	if plan == PlanPremium {
		return PlanLimits{MaxLinks: Unlimited, MaxFileSize: Unlimited}
	}
	return PlanLimits{MaxLinks: FreeMaxLinks, MaxFileSize: FreeMaxFileBytes}
}

// Account holds the per-user entitlement state: plan, quota counters and
// ad-credit balance. Created lazily on the first entitlement check or
// checkout attempt, never deleted in normal operation.
type Account struct {
	ID                 int64     `gorm:"primaryKey;column:id" json:"id"`
	UserID             string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Email              string    `gorm:"column:email;not null" json:"email"`
	Plan               string    `gorm:"column:plan;size:20;not null;default:free" json:"plan"`
	SubscriptionID     *string   `gorm:"column:subscription_id" json:"subscription_id,omitempty"`
	SubscriptionStatus string    `gorm:"column:subscription_status;size:20;not null;default:inactive" json:"subscription_status"`
	LinksCreated       int64     `gorm:"column:links_created;not null;default:0" json:"links_created"`
	TotalFileSize      int64     `gorm:"column:total_file_size;not null;default:0" json:"total_file_size"`
	AdCredits          int64     `gorm:"column:ad_credits;not null;default:0" json:"ad_credits"`
	MaxLinks           int64     `gorm:"column:max_links;not null;default:5" json:"max_links"`
	MaxFileSize        int64     `gorm:"column:max_file_size;not null;default:10485760" json:"max_file_size"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Account) TableName() string {
	return "accounts"
}

// ApplyPlanLimits recomputes the cached quota projection from the current
// plan. Must be called whenever the plan changes.
func (a *Account) ApplyPlanLimits() {
	limits := LimitsForPlan(a.Plan)
	a.MaxLinks = limits.MaxLinks
	a.MaxFileSize = limits.MaxFileSize
}

// IsPremium reports whether the account is on the paid plan.
func (a *Account) IsPremium() bool {
	return a.Plan == PlanPremium
}
