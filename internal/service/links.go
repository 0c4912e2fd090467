package service

import (
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"LinkVault-Backend/pkg/random"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotLinkOwner is returned when a user tries to modify a link owned by
// someone else.
var ErrNotLinkOwner = errors.New("link belongs to another user")

const (
	maxSlugRetries   = 5
	slugSuffixLength = 8
)

// CreateLinkInput carries the caller-supplied fields of a new link.
type CreateLinkInput struct {
	Title       string
	URL         string
	Description string
	Category    string
	Image       *string
	IsFile      bool
	Files       []domain.LinkFile
	CustomSlug  string
}

// LinkService implements the link-creation flow: entitlement check, slug
// assignment, persistence and ad-credit accounting.
type LinkService struct {
	storage     repository.Storage
	entitlement *EntitlementService
	log         *zap.Logger
	baseURL     string
}

// NewLinkService creates a new link service.
func NewLinkService(storage repository.Storage, entitlement *EntitlementService, log *zap.Logger, baseURL string) *LinkService {
	return &LinkService{
		storage:     storage,
		entitlement: entitlement,
		log:         log,
		baseURL:     baseURL,
	}
}

// Create creates a link for userID after a positive entitlement decision.
// Quota rejections surface as *LimitReachedError / *FileSizeLimitError,
// slug collisions as repository.ErrSlugExists.
func (s *LinkService) Create(ctx context.Context, userID string, in CreateLinkInput) (*domain.Link, error) {
	limits, err := s.entitlement.GetUserLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check limits: %w", err)
	}
	if !limits.CanCreateLink {
		return nil, &LimitReachedError{Used: limits.LinksUsed, Limit: limits.LinksLimit}
	}

	if in.IsFile && len(in.Files) > 0 {
		if _, err := s.entitlement.CheckFileUploadLimit(ctx, userID, in.Files); err != nil {
			return nil, err
		}
	}

	if in.Category == "" {
		in.Category = domain.CategoryWork
	}

	files := in.Files
	for i := range files {
		if files[i].ID == "" {
			files[i].ID = uuid.NewString()
		}
	}

	slug, err := s.resolveSlug(ctx, in.CustomSlug, in.Title)
	if err != nil {
		return nil, err
	}

	link := &domain.Link{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		Category:    in.Category,
		Image:       in.Image,
		IsFile:      in.IsFile,
		Files:       files,
		CustomSlug:  slug,
		ShareURL:    s.baseURL + "/share/" + slug,
	}
	if err := link.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	// Accounting for a spent credit happens after the write; a failure here
	// is logged but the created link stands.
	if err := s.entitlement.ConsumeAdCreditIfUsed(ctx, userID, limits); err != nil {
		s.log.Error("failed to account ad credit after link creation",
			zap.String("user_id", userID),
			zap.String("link_id", link.ID),
			zap.Error(err))
	}

	s.log.Info("created link",
		zap.String("link_id", link.ID),
		zap.String("slug", slug),
		zap.String("user_id", userID))
	return link, nil
}

// UpdateLinkInput carries the editable fields of a link update. Nil pointers
// leave the current value untouched; file payloads are immutable after
// creation so they are not part of the update surface.
type UpdateLinkInput struct {
	Title       *string
	URL         *string
	Description *string
	Category    *string
	Image       *string
	CustomSlug  *string
}

// Update applies an owner-checked partial update to an existing link. A slug
// change is checked for uniqueness and recomputes the share URL.
func (s *LinkService) Update(ctx context.Context, userID, linkID string, in UpdateLinkInput) (*domain.Link, error) {
	link, err := s.storage.GetLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.UserID != userID {
		return nil, ErrNotLinkOwner
	}

	if in.Title != nil {
		link.Title = *in.Title
	}
	if in.URL != nil {
		link.URL = *in.URL
	}
	if in.Description != nil {
		link.Description = *in.Description
	}
	if in.Category != nil {
		link.Category = *in.Category
	}
	if in.Image != nil {
		link.Image = in.Image
	}
	if in.CustomSlug != nil && *in.CustomSlug != link.CustomSlug {
		exists, err := s.storage.SlugExists(ctx, *in.CustomSlug)
		if err != nil {
			return nil, fmt.Errorf("failed to check custom slug: %w", err)
		}
		if exists {
			return nil, repository.ErrSlugExists
		}
		link.CustomSlug = *in.CustomSlug
		link.ShareURL = s.baseURL + "/share/" + link.CustomSlug
	}

	if err := link.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateLink(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info("updated link",
		zap.String("link_id", link.ID),
		zap.String("user_id", userID))
	return link, nil
}

// resolveSlug returns the caller's custom slug after a uniqueness check, or
// derives one from the title, retrying with random suffixes on collision.
func (s *LinkService) resolveSlug(ctx context.Context, customSlug, title string) (string, error) {
	if customSlug != "" {
		exists, err := s.storage.SlugExists(ctx, customSlug)
		if err != nil {
			return "", fmt.Errorf("failed to check custom slug: %w", err)
		}
		if exists {
			return "", repository.ErrSlugExists
		}
		return customSlug, nil
	}

	base := Slugify(title)
	candidate := base
	for i := 0; i < maxSlugRetries; i++ {
		if candidate == "" {
			suffix, err := random.NewRandomString(slugSuffixLength)
			if err != nil {
				return "", fmt.Errorf("failed to generate slug: %w", err)
			}
			candidate = suffix
		}
		exists, err := s.storage.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		suffix, err := random.NewRandomString(slugSuffixLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate slug: %w", err)
		}
		if base == "" {
			candidate = suffix
		} else {
			candidate = fmt.Sprintf("%s-%s", base, suffix)
		}
	}
	return "", repository.ErrSlugExists
}

// Slugify normalizes a title into a URL-safe slug: lowercase alphanumerics
// with single dashes between words.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
