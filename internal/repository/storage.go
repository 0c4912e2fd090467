package repository

import (
	"LinkVault-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrLinkNotFound     = errors.New("link not found")
	ErrSlugExists       = errors.New("custom slug already exists")
	ErrSettingsNotFound = errors.New("settings not found")
)

// Storage is the persistence contract for the three record collections.
// Implementations must provide atomic single-field increments where noted;
// no multi-record transactions are required.
type Storage interface {
	// Account methods
	FindOrCreateAccount(ctx context.Context, userID, email string) (*domain.Account, error)
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	// UpdateAccountUsage persists the ratcheted cumulative link counter and
	// the recomputed file byte total.
	UpdateAccountUsage(ctx context.Context, userID string, linksCreated, totalFileSize int64) error
	// UpdateAccountPlan applies a plan transition and recomputes the cached
	// plan-limit projection. Upserts when no account exists yet.
	UpdateAccountPlan(ctx context.Context, userID, plan, status string, subscriptionID *string) error
	// AddAdCredits atomically adjusts the credit balance by delta (may be
	// negative) and returns the new balance. Upserts a free account when the
	// user has none yet.
	AddAdCredits(ctx context.Context, userID string, delta int64) (int64, error)

	// Link methods
	SaveLink(ctx context.Context, link *domain.Link) error
	// UpdateLink rewrites an existing link record, including a changed slug.
	UpdateLink(ctx context.Context, link *domain.Link) error
	GetLinkByID(ctx context.Context, id string) (*domain.Link, error)
	GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListUserLinks(ctx context.Context, userID string) ([]*domain.Link, error)
	ListUserFileLinks(ctx context.Context, userID string) ([]*domain.Link, error)
	CountUserLinks(ctx context.Context, userID string) (int64, error)
	DeleteLink(ctx context.Context, id string) error
	// IncrementViews / IncrementClicks are atomic single-field increments on
	// the public tracking counters.
	IncrementViews(ctx context.Context, id string) error
	IncrementClicks(ctx context.Context, id string) error
	// DeleteUserLinksBefore removes a user's links created before cutoff and
	// returns how many were deleted.
	DeleteUserLinksBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error)
	// DeleteAllUserLinks removes every link a user owns and returns how many
	// were deleted.
	DeleteAllUserLinks(ctx context.Context, userID string) (int64, error)

	// Settings methods
	GetSettings(ctx context.Context, userID string) (*domain.Settings, error)
	UpsertSettings(ctx context.Context, settings *domain.Settings) error
	ListAutoDeleteSettings(ctx context.Context) ([]*domain.Settings, error)
}
