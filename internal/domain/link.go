package domain

import (
	"errors"
	"time"
)

// Link categories. Fixed small set, validated at creation time.
const (
	CategoryWork      = "work"
	CategoryPersonal  = "personal"
	CategoryResources = "resources"
	CategoryProjects  = "projects"
)

var (
	ErrLinkTitleRequired = errors.New("link title is required")
	ErrLinkURLRequired   = errors.New("url is required for non-file links")
	ErrLinkFilesRequired = errors.New("at least one file is required for file links")
	ErrInvalidCategory   = errors.New("invalid link category")
)

// ValidCategory reports whether c is one of the known link categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryResources, CategoryProjects:
		return true
	}
	return false
}

// LinkFile is one uploaded file attached to a file-type link. Data is the
// opaque payload reference; Size is its decoded byte size and is what the
// storage quota accounting is based on.
type LinkFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
	Data     string `json:"data"`
}

// Link is a shareable link: either a pointer to an external URL or a bundle
// of uploaded files. CustomSlug is globally unique across all users since it
// forms the public share namespace.
type Link struct {
	ID          string     `gorm:"primaryKey;column:id" json:"id"`
	UserID      string     `gorm:"column:user_id;index;not null" json:"user_id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	URL         string     `gorm:"column:url" json:"url,omitempty"`
	Description string     `gorm:"column:description" json:"description"`
	Category    string     `gorm:"column:category;size:20;not null;default:work" json:"category"`
	Image       *string    `gorm:"column:image" json:"image,omitempty"`
	IsFile      bool       `gorm:"column:is_file;not null;default:false" json:"is_file"`
	Files       []LinkFile `gorm:"column:files;serializer:json" json:"files,omitempty"`
	CustomSlug  string     `gorm:"column:custom_slug;uniqueIndex;not null" json:"custom_slug"`
	ShareURL    string     `gorm:"column:share_url;not null" json:"share_url"`
	Views       int64      `gorm:"column:views;not null;default:0" json:"views"`
	Clicks      int64      `gorm:"column:clicks;not null;default:0" json:"clicks"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Link) TableName() string {
	return "links"
}

// TotalFileBytes sums the byte sizes of all attached files.
func (l *Link) TotalFileBytes() int64 {
	var total int64
	for _, f := range l.Files {
		total += f.Size
	}
	return total
}

// Validate checks the structural invariants of a link: a file link carries
// at least one file, a plain link carries a URL, and the category is known.
func (l *Link) Validate() error {
	if l.Title == "" {
		return ErrLinkTitleRequired
	}
	if !ValidCategory(l.Category) {
		return ErrInvalidCategory
	}
	if l.IsFile {
		if len(l.Files) == 0 {
			return ErrLinkFilesRequired
		}
		return nil
	}
	if l.URL == "" {
		return ErrLinkURLRequired
	}
	return nil
}
