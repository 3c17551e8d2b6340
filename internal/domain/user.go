package domain

import "time"

// User owns exactly one channel and may follow any number of others.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ChannelID    string    `gorm:"index;not null" json:"channelId"`
	Following    []Channel `gorm:"many2many:user_follows" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}
