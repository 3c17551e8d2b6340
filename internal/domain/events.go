package domain

// WebSocket event types from client.
const (
	EventJoinChannel  = "join-channel"
	EventLeaveChannel = "leave-channel"
	EventChatMessage  = "chat-message"
)

// WebSocket event types to client.
const (
	EventChatHistory = "chat-history"
	EventNewMessage  = "new-message"
	EventError       = "error"
)

// Error codes carried by error events.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotJoined        = "NOT_JOINED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// BaseEvent is the envelope every WebSocket frame starts with.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinChannelEvent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
}

type LeaveChannelEvent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
}

// InboundMessage is the client's view of a message before the store has
// assigned an id. Date is advisory; insertion order is authoritative.
type InboundMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

type ChatMessageEvent struct {
	Type      string         `json:"type"`
	ChannelID string         `json:"channelId"`
	Message   InboundMessage `json:"message"`
}

// Server -> Client events

type ChatHistoryEvent struct {
	Type          string           `json:"type"`
	ChannelID     string           `json:"channelId"`
	Messages      []MessagePayload `json:"messages"`
	ErrorOccurred bool             `json:"errorOccurred,omitempty"`
}

type NewMessageEvent struct {
	Type      string         `json:"type"`
	ChannelID string         `json:"channelId"`
	Message   MessagePayload `json:"message"`
}

type ErrorEvent struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	ChannelID string `json:"channelId,omitempty"`
}

func NewErrorEvent(code, message, channelID string) *ErrorEvent {
	return &ErrorEvent{
		Type:      EventError,
		Code:      code,
		Message:   message,
		ChannelID: channelID,
	}
}
