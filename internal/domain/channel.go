package domain

import "time"

// Channel represents a broadcaster's identity and stream configuration.
// IsActive is owned by the stream status poller; everything else is mutated
// through the settings endpoints.
type Channel struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	AvatarURL   string    `json:"avatarUrl"`
	StreamKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	IsActive    bool      `gorm:"index;not null;default:false" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

// ChannelDetails is a channel plus realtime data assembled by the service
// layer for the details endpoint.
type ChannelDetails struct {
	Channel
	Viewers   int              `json:"viewers"`
	Following bool             `json:"following"`
	Messages  []MessagePayload `json:"messages"`
}
