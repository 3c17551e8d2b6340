package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campfire-tv/backend/internal/cache"
	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/repository"
)

type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User // id -> user
	follows map[string]map[string]bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:   make(map[string]*domain.User),
		follows: make(map[string]map[string]bool),
	}
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) Follow(ctx context.Context, userID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.follows[userID] == nil {
		r.follows[userID] = make(map[string]bool)
	}
	r.follows[userID][channelID] = true
	return nil
}

func (r *memUserRepo) Unfollow(ctx context.Context, userID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.follows[userID], channelID)
	return nil
}

func (r *memUserRepo) IsFollowing(ctx context.Context, userID, channelID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.follows[userID][channelID], nil
}

func (r *memUserRepo) FollowedChannels(ctx context.Context, userID string) ([]domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Channel, 0, len(r.follows[userID]))
	for id := range r.follows[userID] {
		out = append(out, domain.Channel{ID: id})
	}
	return out, nil
}

type memChannelRepo struct {
	mu       sync.Mutex
	channels map[string]*domain.Channel
}

func newMemChannelRepo() *memChannelRepo {
	return &memChannelRepo{channels: make(map[string]*domain.Channel)}
}

func (r *memChannelRepo) Create(ctx context.Context, channel *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	if channel.StreamKey == "" {
		channel.StreamKey = uuid.NewString()
	}
	channel.CreatedAt = time.Now().UTC()
	cp := *channel
	r.channels[channel.ID] = &cp
	return nil
}

func (r *memChannelRepo) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memChannelRepo) List(ctx context.Context) ([]domain.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, *c)
	}
	return out, nil
}

func (r *memChannelRepo) Update(ctx context.Context, channel *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[channel.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *channel
	r.channels[channel.ID] = &cp
	return nil
}

func (r *memChannelRepo) SyncLiveStatus(ctx context.Context, liveKeys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make(map[string]bool, len(liveKeys))
	for _, k := range liveKeys {
		live[k] = true
	}
	for _, c := range r.channels {
		c.IsActive = live[c.StreamKey]
	}
	return nil
}

// pagedMessageRepo serves deterministic pages and counts store reads so
// cache behaviour is observable.
type pagedMessageRepo struct {
	mu        sync.Mutex
	messages  map[string][]domain.Message
	pageCalls int
	pageErr   error
}

func newPagedMessageRepo() *pagedMessageRepo {
	return &pagedMessageRepo{messages: make(map[string][]domain.Message)}
}

func (r *pagedMessageRepo) seed(channelID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 1; i <= n; i++ {
		r.messages[channelID] = append(r.messages[channelID], domain.Message{
			ID:        uint(i),
			ChannelID: channelID,
			Author:    "seed",
			Content:   fmt.Sprintf("msg-%d", i),
			Date:      time.Now().UTC(),
		})
	}
}

func (r *pagedMessageRepo) Append(ctx context.Context, channelID, author, content string, date time.Time) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := domain.Message{
		ID:        uint(len(r.messages[channelID]) + 1),
		ChannelID: channelID,
		Author:    author,
		Content:   content,
		Date:      date,
	}
	r.messages[channelID] = append(r.messages[channelID], msg)
	return &msg, nil
}

func (r *pagedMessageRepo) RecentHistory(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *pagedMessageRepo) Page(ctx context.Context, channelID, cursor string, limit int, dir repository.Direction) ([]domain.Message, string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageCalls++
	if r.pageErr != nil {
		return nil, "", false, r.pageErr
	}

	// Mirrors the GORM repository: backward pages are newest first, the
	// next cursor is the last row's id, rows with id < cursor qualify.
	msgs := r.messages[channelID]
	upper := len(msgs)
	if cursor != "" {
		id, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: bad cursor", repository.ErrValidation)
		}
		upper = id - 1
		if upper > len(msgs) {
			upper = len(msgs)
		}
		if upper < 0 {
			upper = 0
		}
	}

	start := upper - limit
	if start < 0 {
		start = 0
	}
	page := make([]domain.Message, 0, upper-start)
	for i := upper - 1; i >= start; i-- {
		page = append(page, msgs[i])
	}

	hasMore := start > 0
	next := ""
	if len(page) > 0 {
		next = strconv.Itoa(int(page[len(page)-1].ID))
	}
	return page, next, hasMore, nil
}

// countingCache wraps an in-memory store and records hits and misses.
type countingCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	hits   int
	misses int
	sets   int
}

func newCountingCache() *countingCache {
	return &countingCache{data: make(map[string][]byte)}
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		c.hits++
		return v, nil
	}
	c.misses++
	return nil, cache.ErrCacheMiss
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *countingCache) Close() error { return nil }

// memStorage records written blobs keyed by path.
type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "/static/" + key, nil
}

type fixedPresence struct {
	viewers map[string]int
}

func (f fixedPresence) Publish(ctx context.Context, channelID string, viewers int) error { return nil }
func (f fixedPresence) Viewers(ctx context.Context, channelID string) (int, error) {
	return f.viewers[channelID], nil
}
func (f fixedPresence) StartHeartbeat(ctx context.Context) error { return nil }
func (f fixedPresence) StopHeartbeat()                           {}
func (f fixedPresence) Close() error                             { return nil }
