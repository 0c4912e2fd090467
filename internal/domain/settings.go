package domain

import "time"

// Settings holds per-user preferences. The retention sweeper only consumes
// AutoDelete and AutoDeleteDays; the rest is carried for the settings API.
type Settings struct {
	ID                 int64     `gorm:"primaryKey;column:id" json:"id"`
	UserID             string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Theme              string    `gorm:"column:theme;size:10;not null;default:dark" json:"theme"`
	Notifications      bool      `gorm:"column:notifications;not null;default:true" json:"notifications"`
	PublicProfile      bool      `gorm:"column:public_profile;not null;default:false" json:"public_profile"`
	DefaultCategory    string    `gorm:"column:default_category;size:20;not null;default:work" json:"default_category"`
	AutoDelete         bool      `gorm:"column:auto_delete;not null;default:false" json:"auto_delete"`
	AutoDeleteDays     int       `gorm:"column:auto_delete_days;not null;default:30" json:"auto_delete_days"`
	LinkExpiration     bool      `gorm:"column:link_expiration;not null;default:false" json:"link_expiration"`
	LinkExpirationDays int       `gorm:"column:link_expiration_days;not null;default:7" json:"link_expiration_days"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Settings) TableName() string {
	return "settings"
}

// DefaultSettings returns the settings a user gets before saving any.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:             userID,
		Theme:              "dark",
		Notifications:      true,
		DefaultCategory:    CategoryWork,
		AutoDelete:         false,
		AutoDeleteDays:     30,
		LinkExpiration:     false,
		LinkExpirationDays: 7,
	}
}
