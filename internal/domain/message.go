package domain

import "time"

// Message is one chat utterance. Rows are immutable once created; the
// auto-increment ID is the authoritative per-channel ordering, not the
// client-supplied date.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChannelID string    `gorm:"index:idx_messages_channel;not null" json:"channelId"`
	Author    string    `gorm:"not null" json:"author"`
	Content   string    `gorm:"not null" json:"content"`
	Date      time.Time `gorm:"not null" json:"date"`
}

// MessagePayload is the wire representation of a stored message, as sent in
// chat-history and new-message events and returned by the history API.
type MessagePayload struct {
	ID      uint      `json:"id"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// Payload converts a stored message to its wire representation.
func (m *Message) Payload() MessagePayload {
	return MessagePayload{
		ID:      m.ID,
		Author:  m.Author,
		Content: m.Content,
		Date:    m.Date,
	}
}

// MessagePayloads converts a slice of stored messages, preserving order.
// Always returns a non-nil slice so empty history serialises as [].
func MessagePayloads(messages []Message) []MessagePayload {
	out := make([]MessagePayload, len(messages))
	for i := range messages {
		out[i] = messages[i].Payload()
	}
	return out
}
