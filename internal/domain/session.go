package domain

import (
	"sync"
	"time"
)

// Session is the per-connection protocol state: which channels this
// connection has joined, plus optional identity. A session may be joined to
// several channels at once; membership is dropped on leave or disconnect and
// never persisted.
type Session struct {
	ID           string
	UserID       string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time

	joined map[string]struct{}
	mu     sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
		joined:       make(map[string]struct{}),
	}
}

// Join records membership in a channel. Rejoining is a no-op.
func (s *Session) Join(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[channelID] = struct{}{}
	s.LastActiveAt = time.Now()
}

// Leave removes membership in a channel. Leaving a channel the session is
// not in is a no-op.
func (s *Session) Leave(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joined, channelID)
	s.LastActiveAt = time.Now()
}

// Joined reports whether the session is a member of the channel.
func (s *Session) Joined(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.joined[channelID]
	return ok
}

// Channels returns a snapshot of every channel the session has joined.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	return out
}

// Clear drops all memberships and returns the channels that were joined.
// Used by the disconnect path so cleanup is exhaustive.
func (s *Session) Clear() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	s.joined = make(map[string]struct{})
	return out
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
