package service

import (
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"LinkVault-Backend/internal/repository/memory"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "https://linkvault.test"

func newTestLinkService(storage repository.Storage) *LinkService {
	entitlement := newTestEntitlement(storage, config.QuotaModeFailOpen)
	return NewLinkService(storage, entitlement, zap.NewNop(), testBaseURL)
}

func TestCreateLink(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	link, err := svc.Create(ctx, "u1", CreateLinkInput{
		Title: "My Cool Title",
		URL:   "https://example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, link.ID)
	assert.Equal(t, "my-cool-title", link.CustomSlug)
	assert.Equal(t, testBaseURL+"/share/my-cool-title", link.ShareURL)
	assert.Equal(t, domain.CategoryWork, link.Category)

	stored, err := storage.GetLinkBySlug(ctx, "my-cool-title")
	require.NoError(t, err)
	assert.Equal(t, link.ID, stored.ID)
}

func TestCreateLinkLimitReached(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	for i := 0; i < int(domain.FreeMaxLinks); i++ {
		seedLink(t, storage, "u1", i)
	}

	_, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "One Too Many", URL: "https://example.com"})
	var limitErr *LimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(5), limitErr.Used)
	assert.Equal(t, int64(5), limitErr.Limit)
}

func TestCreateLinkConsumesAdCredit(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	for i := 0; i < int(domain.FreeMaxLinks); i++ {
		seedLink(t, storage, "u1", i)
	}
	_, err := storage.AddAdCredits(ctx, "u1", 1)
	require.NoError(t, err)

	link, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "Paid With Credit", URL: "https://example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, link.ID)

	acc, err := storage.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.AdCredits)

	// Credit spent, quota still exhausted: next creation is rejected again.
	_, err = svc.Create(ctx, "u1", CreateLinkInput{Title: "Blocked Again", URL: "https://example.com"})
	var limitErr *LimitReachedError
	require.ErrorAs(t, err, &limitErr)
}

func TestCreateLinkUnderQuotaKeepsCredits(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	_, err := storage.AddAdCredits(ctx, "u1", 2)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u1", CreateLinkInput{Title: "Regular", URL: "https://example.com"})
	require.NoError(t, err)

	acc, err := storage.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), acc.AdCredits)
}

func TestCreateLinkCustomSlugTaken(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	_, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "First", URL: "https://example.com", CustomSlug: "taken"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u2", CreateLinkInput{Title: "Second", URL: "https://example.com", CustomSlug: "taken"})
	require.ErrorIs(t, err, repository.ErrSlugExists)
}

func TestCreateLinkSlugCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	first, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "Same Title", URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "same-title", first.CustomSlug)

	second, err := svc.Create(ctx, "u2", CreateLinkInput{Title: "Same Title", URL: "https://example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.CustomSlug, second.CustomSlug)
	assert.True(t, strings.HasPrefix(second.CustomSlug, "same-title-"))
}

// collidingSlugStorage reports the first n slug candidates as taken,
// forcing the generator into its retry path.
type collidingSlugStorage struct {
	*memory.MemStorage
	collisions int
}

func (s *collidingSlugStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	if s.collisions > 0 {
		s.collisions--
		return true, nil
	}
	return s.MemStorage.SlugExists(ctx, slug)
}

func TestCreateLinkEmptyBaseCollisionRetry(t *testing.T) {
	ctx := context.Background()
	storage := &collidingSlugStorage{MemStorage: memory.New(), collisions: 1}
	svc := newTestLinkService(storage)

	// A title of only symbols slugifies to nothing; after a collision the
	// retry must produce a fresh random slug, not a dash-prefixed one.
	link, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "!!!", URL: "https://example.com"})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(link.CustomSlug, "-"))
	assert.Len(t, link.CustomSlug, slugSuffixLength)
}

func TestCreateFileLinkOverQuota(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	_, err := svc.Create(ctx, "u1", CreateLinkInput{
		Title:  "Huge Upload",
		IsFile: true,
		Files:  []domain.LinkFile{{Name: "big.zip", MimeType: "application/zip", Size: 11 * 1024 * 1024}},
	})
	var sizeErr *FileSizeLimitError
	require.ErrorAs(t, err, &sizeErr)
}

func TestCreateFileLinkAssignsFileIDs(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	link, err := svc.Create(ctx, "u1", CreateLinkInput{
		Title:  "Docs",
		IsFile: true,
		Files: []domain.LinkFile{
			{Name: "a.pdf", MimeType: "application/pdf", Size: 100},
			{Name: "b.pdf", MimeType: "application/pdf", Size: 200},
		},
	})
	require.NoError(t, err)
	require.Len(t, link.Files, 2)
	assert.NotEmpty(t, link.Files[0].ID)
	assert.NotEmpty(t, link.Files[1].ID)
	assert.NotEqual(t, link.Files[0].ID, link.Files[1].ID)
}

func TestCreateLinkValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestLinkService(memory.New())

	_, err := svc.Create(ctx, "u1", CreateLinkInput{URL: "https://example.com"})
	require.ErrorIs(t, err, domain.ErrLinkTitleRequired)

	_, err = svc.Create(ctx, "u1", CreateLinkInput{Title: "No Target"})
	require.ErrorIs(t, err, domain.ErrLinkURLRequired)

	_, err = svc.Create(ctx, "u1", CreateLinkInput{Title: "Empty Upload", IsFile: true})
	require.ErrorIs(t, err, domain.ErrLinkFilesRequired)

	_, err = svc.Create(ctx, "u1", CreateLinkInput{Title: "Bad Category", URL: "https://example.com", Category: "nonsense"})
	require.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestUpdateLink(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	link, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "Before", URL: "https://example.com"})
	require.NoError(t, err)

	newTitle := "After"
	newSlug := "after-slug"
	updated, err := svc.Update(ctx, "u1", link.ID, UpdateLinkInput{Title: &newTitle, CustomSlug: &newSlug})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, "after-slug", updated.CustomSlug)
	assert.Equal(t, testBaseURL+"/share/after-slug", updated.ShareURL)

	// Untouched fields survive a partial update.
	assert.Equal(t, "https://example.com", updated.URL)

	stored, err := storage.GetLinkBySlug(ctx, "after-slug")
	require.NoError(t, err)
	assert.Equal(t, link.ID, stored.ID)
}

func TestUpdateLinkOwnerAndSlugChecks(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	svc := newTestLinkService(storage)

	mine, err := svc.Create(ctx, "u1", CreateLinkInput{Title: "Mine", URL: "https://example.com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", CreateLinkInput{Title: "Theirs", URL: "https://example.com", CustomSlug: "theirs"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.Update(ctx, "u2", mine.ID, UpdateLinkInput{Title: &title})
	require.ErrorIs(t, err, ErrNotLinkOwner)

	taken := "theirs"
	_, err = svc.Update(ctx, "u1", mine.ID, UpdateLinkInput{CustomSlug: &taken})
	require.ErrorIs(t, err, repository.ErrSlugExists)

	_, err = svc.Update(ctx, "u1", "missing", UpdateLinkInput{Title: &title})
	require.ErrorIs(t, err, repository.ErrLinkNotFound)

	bad := "nonsense"
	_, err = svc.Update(ctx, "u1", mine.ID, UpdateLinkInput{Category: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Cool Title":      "my-cool-title",
		"  spaced   out  ":   "spaced-out",
		"Symbols!@#Between$": "symbols-between",
		"UPPER":              "upper",
		"éàü":                "",
		"42 things":          "42-things",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}
