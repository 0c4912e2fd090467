package memory

import (
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage is an in-memory Storage implementation used by tests and local
// development. All maps are guarded by a single mutex; the increment methods
// are therefore atomic like their PostgreSQL counterparts.
type MemStorage struct {
	mu             sync.RWMutex
	accounts       map[string]*domain.Account
	links          map[string]*domain.Link
	linksBySlug    map[string]string
	settings       map[string]*domain.Settings
	accountCounter int64
}

func New() *MemStorage {
	return &MemStorage{
		accounts:    make(map[string]*domain.Account),
		links:       make(map[string]*domain.Link),
		linksBySlug: make(map[string]string),
		settings:    make(map[string]*domain.Settings),
	}
}

// --- Account Methods ---

func (s *MemStorage) FindOrCreateAccount(_ context.Context, userID, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.findOrCreateLocked(userID, email)
	return &copied, nil
}

func (s *MemStorage) findOrCreateLocked(userID, email string) *domain.Account {
	if acc, exists := s.accounts[userID]; exists {
		return acc
	}
	s.accountCounter++
	acc := &domain.Account{
		ID:                 s.accountCounter,
		UserID:             userID,
		Email:              email,
		Plan:               domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
		CreatedAt:          time.Now(),
	}
	acc.ApplyPlanLimits()
	s.accounts[userID] = acc
	return acc
}

func (s *MemStorage) GetAccount(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *acc
	return &copied, nil
}

func (s *MemStorage) UpdateAccountUsage(_ context.Context, userID string, linksCreated, totalFileSize int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acc.LinksCreated = linksCreated
	acc.TotalFileSize = totalFileSize
	acc.UpdatedAt = time.Now()
	return nil
}

func (s *MemStorage) UpdateAccountPlan(_ context.Context, userID, plan, status string, subscriptionID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		acc = s.findOrCreateLocked(userID, "")
	}
	acc.Plan = plan
	acc.SubscriptionStatus = status
	acc.SubscriptionID = subscriptionID
	acc.ApplyPlanLimits()
	acc.UpdatedAt = time.Now()
	return nil
}

func (s *MemStorage) AddAdCredits(_ context.Context, userID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		acc = s.findOrCreateLocked(userID, "")
	}
	acc.AdCredits += delta
	acc.UpdatedAt = time.Now()
	return acc.AdCredits, nil
}

// --- Link Methods ---

func (s *MemStorage) SaveLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.linksBySlug[link.CustomSlug]; exists {
		return repository.ErrSlugExists
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	stored := *link
	s.links[link.ID] = &stored
	s.linksBySlug[link.CustomSlug] = link.ID
	return nil
}

func (s *MemStorage) UpdateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.links[link.ID]
	if !ok {
		return repository.ErrLinkNotFound
	}
	if link.CustomSlug != current.CustomSlug {
		if _, taken := s.linksBySlug[link.CustomSlug]; taken {
			return repository.ErrSlugExists
		}
		delete(s.linksBySlug, current.CustomSlug)
		s.linksBySlug[link.CustomSlug] = link.ID
	}
	stored := *link
	stored.UpdatedAt = time.Now()
	s.links[link.ID] = &stored
	return nil
}

func (s *MemStorage) GetLinkByID(_ context.Context, id string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (s *MemStorage) GetLinkBySlug(_ context.Context, slug string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.linksBySlug[slug]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	copied := *s.links[id]
	return &copied, nil
}

func (s *MemStorage) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.linksBySlug[slug]
	return ok, nil
}

func (s *MemStorage) ListUserLinks(_ context.Context, userID string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var userLinks []*domain.Link
	for _, link := range s.links {
		if link.UserID == userID {
			copied := *link
			userLinks = append(userLinks, &copied)
		}
	}
	sort.Slice(userLinks, func(i, j int) bool {
		return userLinks[i].CreatedAt.After(userLinks[j].CreatedAt)
	})
	return userLinks, nil
}

func (s *MemStorage) ListUserFileLinks(_ context.Context, userID string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var fileLinks []*domain.Link
	for _, link := range s.links {
		if link.UserID == userID && link.IsFile {
			copied := *link
			fileLinks = append(fileLinks, &copied)
		}
	}
	return fileLinks, nil
}

func (s *MemStorage) CountUserLinks(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, link := range s.links {
		if link.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return repository.ErrLinkNotFound
	}
	delete(s.linksBySlug, link.CustomSlug)
	delete(s.links, id)
	return nil
}

func (s *MemStorage) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return repository.ErrLinkNotFound
	}
	link.Views++
	return nil
}

func (s *MemStorage) IncrementClicks(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return repository.ErrLinkNotFound
	}
	link.Clicks++
	return nil
}

func (s *MemStorage) DeleteUserLinksBefore(_ context.Context, userID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, link := range s.links {
		if link.UserID == userID && link.CreatedAt.Before(cutoff) {
			delete(s.linksBySlug, link.CustomSlug)
			delete(s.links, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemStorage) DeleteAllUserLinks(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, link := range s.links {
		if link.UserID == userID {
			delete(s.linksBySlug, link.CustomSlug)
			delete(s.links, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- Settings Methods ---

func (s *MemStorage) GetSettings(_ context.Context, userID string) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[userID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	copied := *settings
	return &copied, nil
}

func (s *MemStorage) UpsertSettings(_ context.Context, settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *settings
	s.settings[settings.UserID] = &stored
	return nil
}

func (s *MemStorage) ListAutoDeleteSettings(_ context.Context) ([]*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*domain.Settings
	for _, settings := range s.settings {
		if settings.AutoDelete {
			copied := *settings
			result = append(result, &copied)
		}
	}
	return result, nil
}
