package postgres

import (
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage implements the Storage interface on top of PostgreSQL.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Account Methods ---

// FindOrCreateAccount finds the account for userID or lazily creates one
// with free-plan defaults.
func (s *PostgresStorage) FindOrCreateAccount(ctx context.Context, userID, email string) (*domain.Account, error) {
	var account domain.Account

	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if err != gorm.ErrRecordNotFound {
		s.log.Error("failed to find account", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	account = domain.Account{
		UserID:             userID,
		Email:              email,
		Plan:               domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
	}
	account.ApplyPlanLimits()

	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		s.log.Error("failed to create account", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info("created new account", zap.String("user_id", userID))
	return &account, nil
}

// GetAccount returns the account for userID without creating one.
func (s *PostgresStorage) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var account domain.Account

	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		s.log.Error("failed to get account", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// UpdateAccountUsage persists the ratcheted link counter and the recomputed
// file byte total.
func (s *PostgresStorage) UpdateAccountUsage(ctx context.Context, userID string, linksCreated, totalFileSize int64) error {
	result := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"links_created":   linksCreated,
			"total_file_size": totalFileSize,
		})
	if result.Error != nil {
		s.log.Error("failed to update account usage", zap.String("user_id", userID), zap.Error(result.Error))
		return fmt.Errorf("failed to update account usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

// UpdateAccountPlan applies a plan transition and recomputes the cached plan
// limits. Creates the account first when the user has none yet (webhook
// events can arrive before the first entitlement check).
func (s *PostgresStorage) UpdateAccountPlan(ctx context.Context, userID, plan, status string, subscriptionID *string) error {
	if _, err := s.FindOrCreateAccount(ctx, userID, ""); err != nil {
		return err
	}

	limits := domain.LimitsForPlan(plan)
	err := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"plan":                plan,
			"subscription_status": status,
			"subscription_id":     subscriptionID,
			"max_links":           limits.MaxLinks,
			"max_file_size":       limits.MaxFileSize,
		}).Error
	if err != nil {
		s.log.Error("failed to update account plan",
			zap.String("user_id", userID),
			zap.String("plan", plan),
			zap.Error(err))
		return fmt.Errorf("failed to update account plan: %w", err)
	}

	s.log.Info("updated account plan",
		zap.String("user_id", userID),
		zap.String("plan", plan),
		zap.String("status", status))
	return nil
}

// AddAdCredits atomically adjusts the credit balance and returns the new
// value. The increment itself is a single UPDATE so concurrent awards never
// lose updates.
func (s *PostgresStorage) AddAdCredits(ctx context.Context, userID string, delta int64) (int64, error) {
	if _, err := s.FindOrCreateAccount(ctx, userID, ""); err != nil {
		return 0, err
	}

	err := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Update("ad_credits", gorm.Expr("ad_credits + ?", delta)).Error
	if err != nil {
		s.log.Error("failed to adjust ad credits", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to adjust ad credits: %w", err)
	}

	var account domain.Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return 0, fmt.Errorf("failed to read ad credit balance: %w", err)
	}

	return account.AdCredits, nil
}

// --- Link Methods ---

// SaveLink stores a new link. The slug uniqueness check mirrors the unique
// index so the common case fails with a typed error instead of a driver one.
func (s *PostgresStorage) SaveLink(ctx context.Context, link *domain.Link) error {
	var existing domain.Link
	err := s.db.WithContext(ctx).Where("custom_slug = ?", link.CustomSlug).First(&existing).Error
	if err == nil {
		return repository.ErrSlugExists
	}
	if err != gorm.ErrRecordNotFound {
		s.log.Error("failed to check slug existence", zap.String("slug", link.CustomSlug), zap.Error(err))
		return fmt.Errorf("failed to check slug: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		s.log.Error("failed to save link", zap.String("slug", link.CustomSlug), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("link_id", link.ID), zap.String("user_id", link.UserID))
	return nil
}

// UpdateLink rewrites an existing link. Slug changes race the unique index;
// the pre-check keeps the common conflict a typed error.
func (s *PostgresStorage) UpdateLink(ctx context.Context, link *domain.Link) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("custom_slug = ? AND id <> ?", link.CustomSlug, link.ID).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check slug existence", zap.String("slug", link.CustomSlug), zap.Error(err))
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return repository.ErrSlugExists
	}

	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"title":       link.Title,
			"url":         link.URL,
			"description": link.Description,
			"category":    link.Category,
			"image":       link.Image,
			"custom_slug": link.CustomSlug,
			"share_url":   link.ShareURL,
		})
	if result.Error != nil {
		s.log.Error("failed to update link", zap.String("link_id", link.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("updated link", zap.String("link_id", link.ID), zap.String("user_id", link.UserID))
	return nil
}

func (s *PostgresStorage) GetLinkByID(ctx context.Context, id string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (s *PostgresStorage) GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("custom_slug = ?", slug).First(&link).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link by slug", zap.String("slug", slug), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (s *PostgresStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("custom_slug = ?", slug).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check slug existence", zap.String("slug", slug), zap.Error(err))
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStorage) ListUserLinks(ctx context.Context, userID string) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to list user links", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}

	return links, nil
}

func (s *PostgresStorage) ListUserFileLinks(ctx context.Context, userID string) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).Where("user_id = ? AND is_file = ?", userID, true).Find(&links).Error
	if err != nil {
		s.log.Error("failed to list user file links", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user file links: %w", err)
	}

	return links, nil
}

func (s *PostgresStorage) CountUserLinks(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		s.log.Error("failed to count user links", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count user links: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) DeleteLink(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.String("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("deleted link", zap.String("link_id", id))
	return nil
}

// IncrementViews bumps the public view counter with a single atomic UPDATE.
func (s *PostgresStorage) IncrementViews(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		s.log.Error("failed to increment views", zap.String("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to increment views: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// IncrementClicks bumps the public click counter with a single atomic UPDATE.
func (s *PostgresStorage) IncrementClicks(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", id).
		Update("clicks", gorm.Expr("clicks + 1"))
	if result.Error != nil {
		s.log.Error("failed to increment clicks", zap.String("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to increment clicks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteUserLinksBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID, cutoff).
		Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete expired links", zap.String("user_id", userID), zap.Error(result.Error))
		return 0, fmt.Errorf("failed to delete expired links: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PostgresStorage) DeleteAllUserLinks(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete user links", zap.String("user_id", userID), zap.Error(result.Error))
		return 0, fmt.Errorf("failed to delete user links: %w", result.Error)
	}

	s.log.Info("deleted all user links",
		zap.String("user_id", userID),
		zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

// --- Settings Methods ---

func (s *PostgresStorage) GetSettings(ctx context.Context, userID string) (*domain.Settings, error) {
	var settings domain.Settings

	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrSettingsNotFound
	}
	if err != nil {
		s.log.Error("failed to get settings", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &settings, nil
}

func (s *PostgresStorage) UpsertSettings(ctx context.Context, settings *domain.Settings) error {
	var existing domain.Settings
	err := s.db.WithContext(ctx).Where("user_id = ?", settings.UserID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := s.db.WithContext(ctx).Create(settings).Error; err != nil {
			s.log.Error("failed to create settings", zap.String("user_id", settings.UserID), zap.Error(err))
			return fmt.Errorf("failed to create settings: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	settings.ID = existing.ID
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		s.log.Error("failed to update settings", zap.String("user_id", settings.UserID), zap.Error(err))
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListAutoDeleteSettings(ctx context.Context) ([]*domain.Settings, error) {
	var settings []*domain.Settings

	err := s.db.WithContext(ctx).Where("auto_delete = ?", true).Find(&settings).Error
	if err != nil {
		s.log.Error("failed to list auto-delete settings", zap.Error(err))
		return nil, fmt.Errorf("failed to list auto-delete settings: %w", err)
	}

	return settings, nil
}
