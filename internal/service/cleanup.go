package service

import (
	"LinkVault-Backend/internal/repository"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupService deletes links that outlived a user's auto-delete retention
// window. Deletion only removes records; the cumulative link counter on the
// account is never touched, so a sweep does not free up free-plan quota.
type CleanupService struct {
	storage  repository.Storage
	log      *zap.Logger
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCleanup creates a new retention sweeper.
func NewCleanup(storage repository.Storage, interval time.Duration, log *zap.Logger) *CleanupService {
	return &CleanupService{
		storage:  storage,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SweepExpiredLinks runs one retention pass over every user with auto-delete
// enabled and returns the total number of links removed. A failure for one
// user is logged and does not stop the sweep for the rest.
func (s *CleanupService) SweepExpiredLinks(ctx context.Context) (int64, error) {
	settingsList, err := s.storage.ListAutoDeleteSettings(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var total int64
	for _, settings := range settingsList {
		if settings.AutoDeleteDays <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -settings.AutoDeleteDays)
		deleted, err := s.storage.DeleteUserLinksBefore(ctx, settings.UserID, cutoff)
		if err != nil {
			s.log.Error("retention sweep failed for user",
				zap.String("user_id", settings.UserID),
				zap.Error(err))
			continue
		}
		if deleted > 0 {
			s.log.Info("retention sweep deleted links",
				zap.String("user_id", settings.UserID),
				zap.Int64("deleted", deleted),
				zap.Int("retention_days", settings.AutoDeleteDays))
		}
		total += deleted
	}

	return total, nil
}

// SweepExpiredLinksForUser runs a retention pass for a single user. Users
// without auto-delete enabled get a zero-count no-op.
func (s *CleanupService) SweepExpiredLinksForUser(ctx context.Context, userID string) (int64, error) {
	settings, err := s.storage.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if !settings.AutoDelete || settings.AutoDeleteDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -settings.AutoDeleteDays)
	return s.storage.DeleteUserLinksBefore(ctx, userID, cutoff)
}

// Start launches the periodic sweep loop in a background goroutine. The
// first sweep runs after one full interval.
func (s *CleanupService) Start() {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("retention sweeper started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ticker.C:
				deleted, err := s.SweepExpiredLinks(context.Background())
				if err != nil {
					s.log.Error("retention sweep failed", zap.Error(err))
					continue
				}
				s.log.Info("retention sweep completed", zap.Int64("deleted", deleted))
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the sweep loop and waits for it to exit.
func (s *CleanupService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.log.Info("retention sweeper stopped")
}
