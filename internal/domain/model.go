package domain

import (
	"time"

	"github.com/Worldstreet-team/xtreme-livestream/pkg/database"
	"gorm.io/gorm"
)

// StreamModel is the GORM model for the streams table.
type StreamModel struct {
	ID            string               `gorm:"type:varchar(36);primaryKey"`
	OwnerID       string               `gorm:"type:varchar(36);index;not null"`
	OwnerUsername string               `gorm:"type:varchar(50);not null"`
	Title         string               `gorm:"type:varchar(100);not null"`
	Category      string               `gorm:"type:varchar(50);index"`
	Tags          database.StringArray `gorm:"type:text"`
	Thumbnail     string               `gorm:"type:text"`
	Status        string               `gorm:"type:varchar(20);index;not null;default:'live'"`
	MediaRoomName string               `gorm:"type:varchar(100);not null"`
	Viewers       int                  `gorm:"default:0"`
	PeakViewers   int                  `gorm:"default:0"`
	StartedAt     time.Time            `gorm:"autoCreateTime"`
	EndedAt       *time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for StreamModel.
func (StreamModel) TableName() string {
	return "streams"
}

// ToDomain converts StreamModel to a domain Stream.
func (m *StreamModel) ToDomain() *Stream {
	return &Stream{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		OwnerUsername: m.OwnerUsername,
		Title:         m.Title,
		Category:      m.Category,
		Tags:          []string(m.Tags),
		Thumbnail:     m.Thumbnail,
		Status:        StreamStatus(m.Status),
		MediaRoomName: m.MediaRoomName,
		Viewers:       m.Viewers,
		PeakViewers:   m.PeakViewers,
		StartedAt:     m.StartedAt,
		EndedAt:       m.EndedAt,
	}
}

// StreamToModel converts a domain Stream to StreamModel.
func StreamToModel(s *Stream) *StreamModel {
	return &StreamModel{
		ID:            s.ID,
		OwnerID:       s.OwnerID,
		OwnerUsername: s.OwnerUsername,
		Title:         s.Title,
		Category:      s.Category,
		Tags:          database.StringArray(s.Tags),
		Thumbnail:     s.Thumbnail,
		Status:        string(s.Status),
		MediaRoomName: s.MediaRoomName,
		Viewers:       s.Viewers,
		PeakViewers:   s.PeakViewers,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
	}
}

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	AuthUserID      string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Username        string `gorm:"type:varchar(50);uniqueIndex;not null"`
	DisplayName     string `gorm:"type:varchar(50);not null"`
	Avatar          string `gorm:"type:text"`
	Bio             string `gorm:"type:varchar(200)"`
	Followers       int    `gorm:"default:0"`
	Following       int    `gorm:"default:0"`
	SlowMode        bool   `gorm:"default:false"`
	SubscriberOnly  bool   `gorm:"default:false"`
	ProfanityFilter bool   `gorm:"default:true"`
	AutoRecord      bool   `gorm:"default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to a domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:          m.ID,
		AuthUserID:  m.AuthUserID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		Avatar:      m.Avatar,
		Bio:         m.Bio,
		Followers:   m.Followers,
		Following:   m.Following,
		Settings: ChatSettings{
			SlowMode:        m.SlowMode,
			SubscriberOnly:  m.SubscriberOnly,
			ProfanityFilter: m.ProfanityFilter,
			AutoRecord:      m.AutoRecord,
		},
		CreatedAt: m.CreatedAt,
	}
}

// UserToModel converts a domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:              u.ID,
		AuthUserID:      u.AuthUserID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		Avatar:          u.Avatar,
		Bio:             u.Bio,
		Followers:       u.Followers,
		Following:       u.Following,
		SlowMode:        u.Settings.SlowMode,
		SubscriberOnly:  u.Settings.SubscriberOnly,
		ProfanityFilter: u.Settings.ProfanityFilter,
		AutoRecord:      u.Settings.AutoRecord,
	}
}
