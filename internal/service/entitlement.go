package service

import (
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// UserLimits is the entitlement snapshot returned to callers: what the user
// may do right now and the numbers the decision was derived from.
type UserLimits struct {
	CanCreateLink     bool   `json:"can_create_link"`
	CanUploadFile     bool   `json:"can_upload_file"`
	MaxFileSize       int64  `json:"max_file_size"`
	TotalFileSizeUsed int64  `json:"total_file_size_used"`
	LinksUsed         int64  `json:"links_used"`
	LinksLimit        int64  `json:"links_limit"`
	Plan              string `json:"plan"`
	AdCredits         int64  `json:"ad_credits"`
}

// LimitReachedError signals that link creation is blocked by quota. It
// carries the limiting numbers so the caller can offer a remediation path.
type LimitReachedError struct {
	Used  int64
	Limit int64
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("link creation limit reached: %d of %d links used. Upgrade to Premium for unlimited links", e.Used, e.Limit)
}

// FileSizeLimitError signals that an upload would exceed the total file
// storage quota. All figures are in bytes.
type FileSizeLimitError struct {
	UsedBytes       int64
	LimitBytes      int64
	TotalAfterBytes int64
}

func (e *FileSizeLimitError) Error() string {
	return fmt.Sprintf(
		"total file storage limit exceeded: you've used %dMB and this upload would make it %dMB, but your limit is %dMB. Upgrade to Premium for unlimited storage",
		toMiB(e.UsedBytes), toMiB(e.TotalAfterBytes), toMiB(e.LimitBytes))
}

func toMiB(bytes int64) int64 {
	return (bytes + 512*1024) / (1024 * 1024)
}

// UsageSnapshot is the result of a usage reconciliation pass.
type UsageSnapshot struct {
	Account   *domain.Account
	LinksUsed int64
	FileBytes int64
}

// EntitlementService computes usage and permission decisions from the
// account and link stores and enforces the monotonic link-counter rule.
type EntitlementService struct {
	storage   repository.Storage
	log       *zap.Logger
	quotaMode string
}

// NewEntitlement creates a new entitlement service.
func NewEntitlement(storage repository.Storage, cfg *config.Entitlement, log *zap.Logger) *EntitlementService {
	return &EntitlementService{
		storage:   storage,
		log:       log,
		quotaMode: cfg.QuotaMode,
	}
}

// ReconcileUsage recomputes a user's live usage and persists it back to the
// account record. The cumulative link counter is a ratchet: it is raised to
// the live count when the live count exceeds it, but never lowered when
// links are deleted. This keeps deletion from freeing up free-plan slots.
// Safe to call from the read path and from maintenance jobs; idempotent.
func (s *EntitlementService) ReconcileUsage(ctx context.Context, userID string) (*UsageSnapshot, error) {
	account, err := s.storage.FindOrCreateAccount(ctx, userID, placeholderEmail(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	linkCount, err := s.storage.CountUserLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	fileLinks, err := s.storage.ListUserFileLinks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list file links: %w", err)
	}
	var fileBytes int64
	for _, link := range fileLinks {
		fileBytes += link.TotalFileBytes()
	}

	linksUsed := account.LinksCreated
	if linkCount > linksUsed {
		linksUsed = linkCount
	}

	if err := s.storage.UpdateAccountUsage(ctx, userID, linksUsed, fileBytes); err != nil {
		return nil, fmt.Errorf("failed to persist usage: %w", err)
	}
	account.LinksCreated = linksUsed
	account.TotalFileSize = fileBytes

	return &UsageSnapshot{Account: account, LinksUsed: linksUsed, FileBytes: fileBytes}, nil
}

// GetUserLimits returns the current entitlement snapshot for a user,
// creating the account with free-plan defaults when none exists.
//
// In fail-open mode a storage failure yields permissive free-plan defaults
// instead of an error: the limits check favors availability over strict
// quota enforcement. Strict mode propagates the error.
func (s *EntitlementService) GetUserLimits(ctx context.Context, userID string) (*UserLimits, error) {
	snapshot, err := s.ReconcileUsage(ctx, userID)
	if err != nil {
		if s.quotaMode == config.QuotaModeStrict {
			return nil, err
		}
		s.log.Error("limits check failed, returning fail-open defaults",
			zap.String("user_id", userID),
			zap.Error(err))
		return defaultFreeLimits(), nil
	}

	account := snapshot.Account
	canCreateLink := account.MaxLinks == domain.Unlimited ||
		snapshot.LinksUsed < account.MaxLinks ||
		account.AdCredits > 0
	canUploadFile := account.IsPremium() || account.MaxFileSize > 0

	return &UserLimits{
		CanCreateLink:     canCreateLink,
		CanUploadFile:     canUploadFile,
		MaxFileSize:       account.MaxFileSize,
		TotalFileSizeUsed: snapshot.FileBytes,
		LinksUsed:         snapshot.LinksUsed,
		LinksLimit:        account.MaxLinks,
		Plan:              account.Plan,
		AdCredits:         account.AdCredits,
	}, nil
}

// CheckFileUploadLimit verifies that adding the candidate files keeps the
// user within the total storage quota. Returns the projected total after the
// upload; a *FileSizeLimitError means the quota would be exceeded. The check
// is advisory at call time: the window between check and insert is not
// closed (see the package tests for the accepted overshoot semantics).
func (s *EntitlementService) CheckFileUploadLimit(ctx context.Context, userID string, files []domain.LinkFile) (int64, error) {
	limits, err := s.GetUserLimits(ctx, userID)
	if err != nil {
		return 0, err
	}

	var newBytes int64
	for _, f := range files {
		newBytes += f.Size
	}
	totalAfter := limits.TotalFileSizeUsed + newBytes

	if limits.Plan == domain.PlanPremium || limits.MaxFileSize == domain.Unlimited {
		return totalAfter, nil
	}

	if totalAfter > limits.MaxFileSize {
		return totalAfter, &FileSizeLimitError{
			UsedBytes:       limits.TotalFileSizeUsed,
			LimitBytes:      limits.MaxFileSize,
			TotalAfterBytes: totalAfter,
		}
	}

	return totalAfter, nil
}

// ConsumeAdCreditIfUsed decrements the ad-credit balance when a creation
// only succeeded because of a spent credit: the user is on the free plan and
// was already at or over the base quota before the creation. Callers must
// have verified CanCreateLink beforehand; the decrement itself does not
// guard against a negative balance.
func (s *EntitlementService) ConsumeAdCreditIfUsed(ctx context.Context, userID string, pre *UserLimits) error {
	if pre.Plan != domain.PlanFree || pre.LinksLimit == domain.Unlimited || pre.LinksUsed < pre.LinksLimit {
		return nil
	}

	balance, err := s.storage.AddAdCredits(ctx, userID, -1)
	if err != nil {
		return fmt.Errorf("failed to consume ad credit: %w", err)
	}

	s.log.Info("consumed ad credit",
		zap.String("user_id", userID),
		zap.Int64("remaining_credits", balance))
	return nil
}

// AwardAdCredit grants the fixed rewarded-ad credit amount and returns the
// new balance. Each call grants unconditionally; replay protection is the
// caller's responsibility.
func (s *EntitlementService) AwardAdCredit(ctx context.Context, userID string) (int64, error) {
	balance, err := s.storage.AddAdCredits(ctx, userID, domain.AdCreditReward)
	if err != nil {
		return 0, fmt.Errorf("failed to award ad credit: %w", err)
	}

	s.log.Info("awarded ad credits",
		zap.String("user_id", userID),
		zap.Int64("new_balance", balance))
	return balance, nil
}

// defaultFreeLimits is the fail-open fallback: free-plan numbers with
// creation allowed, so a storage outage degrades to permissiveness rather
// than blocking users.
func defaultFreeLimits() *UserLimits {
	return &UserLimits{
		CanCreateLink: true,
		CanUploadFile: true,
		MaxFileSize:   domain.FreeMaxFileBytes,
		LinksLimit:    domain.FreeMaxLinks,
		Plan:          domain.PlanFree,
	}
}

// placeholderEmail is used when an account is created lazily from a context
// where the identity provider's email is not at hand.
func placeholderEmail(userID string) string {
	return fmt.Sprintf("user-%s@example.com", userID)
}
