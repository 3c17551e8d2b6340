package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-tv/backend/internal/config"
	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/firehose"
	"github.com/campfire-tv/backend/internal/hub"
	"github.com/campfire-tv/backend/internal/presence"
	"github.com/campfire-tv/backend/internal/repository"
)

// fakeMessageRepo is an in-memory MessageRepository with failure injection.
type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages map[string][]domain.Message

	appendErr  error
	historyErr error
	lastDate   time.Time
	onHistory  func() // runs during RecentHistory, before returning
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]domain.Message)}
}

func (f *fakeMessageRepo) Append(ctx context.Context, channelID, author, content string, date time.Time) (*domain.Message, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	if strings.TrimSpace(author) == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: author and content must not be empty", repository.ErrValidation)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.lastDate = date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	msg := domain.Message{
		ID:        f.nextID,
		ChannelID: channelID,
		Author:    author,
		Content:   content,
		Date:      date,
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
	return &msg, nil
}

func (f *fakeMessageRepo) RecentHistory(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	if f.onHistory != nil {
		f.onHistory()
	}
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeMessageRepo) Page(ctx context.Context, channelID, cursor string, limit int, dir repository.Direction) ([]domain.Message, string, bool, error) {
	return nil, "", false, nil
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

func newTestClient(t *testing.T, h *hub.Hub, id string) *hub.Client {
	t.Helper()
	c := hub.NewClient(id, h, nil, testWSConfig())
	h.Register(c)
	return c
}

// drainEvents decodes every frame currently queued on the client's send
// channel into generic maps.
func drainEvents(t *testing.T, c *hub.Client) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return events
			}
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &m))
			events = append(events, m)
		default:
			return events
		}
	}
}

func newTestRelay(h *hub.Hub, repo repository.MessageRepository) ChatRelay {
	return NewChatRelay(h, repo, presence.NoopRegistry{}, firehose.NoopProducer{}, 100)
}

func TestJoinReplaysHistoryToJoinerOnly(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	_, err := repo.Append(ctx, "gaming", "ann", "first", time.Time{})
	require.NoError(t, err)
	_, err = repo.Append(ctx, "gaming", "bob", "second", time.Time{})
	require.NoError(t, err)

	resident := newTestClient(t, h, "resident")
	require.NoError(t, r.HandleJoin(ctx, resident, "gaming"))
	drainEvents(t, resident)

	joiner := newTestClient(t, h, "joiner")
	require.NoError(t, r.HandleJoin(ctx, joiner, "gaming"))

	events := drainEvents(t, joiner)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChatHistory, events[0]["type"])
	assert.Equal(t, "gaming", events[0]["channelId"])

	msgs := events[0]["messages"].([]interface{})
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	second := msgs[1].(map[string]interface{})
	assert.Equal(t, "first", first["content"])
	assert.Equal(t, "second", second["content"])
	assert.Less(t, first["id"].(float64), second["id"].(float64))

	// The resident must not receive the joiner's history replay.
	assert.Empty(t, drainEvents(t, resident))
}

func TestJoinEmptyChannelReplaysEmptyHistory(t *testing.T) {
	h := hub.NewHub()
	r := newTestRelay(h, newFakeMessageRepo())

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleJoin(context.Background(), c, "quiet"))

	events := drainEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChatHistory, events[0]["type"])

	msgs, ok := events[0]["messages"].([]interface{})
	require.True(t, ok, "messages must be an array, not null")
	assert.Empty(t, msgs)
}

func TestJoinWithoutChannelIDRejected(t *testing.T) {
	h := hub.NewHub()
	r := newTestRelay(h, newFakeMessageRepo())

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleJoin(context.Background(), c, ""))

	events := drainEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0]["type"])
	assert.Equal(t, domain.ErrCodeBadRequest, events[0]["code"])
	assert.Empty(t, c.Session.Channels())
}

func TestJoinHistoryFetchFailure(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	repo.historyErr = errors.New("db down")
	r := newTestRelay(h, repo)

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleJoin(context.Background(), c, "gaming"))

	events := drainEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChatHistory, events[0]["type"])
	assert.Equal(t, true, events[0]["errorOccurred"])

	// Membership survives the failed fetch; live messages still arrive.
	assert.Equal(t, 1, h.RoomSize("gaming"))
	assert.True(t, c.Session.Joined("gaming"))
}

func TestJoinRegistersBeforeHistoryFetch(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)

	c := newTestClient(t, h, "c1")
	repo.onHistory = func() {
		// A broadcast racing the history fetch must already see the joiner.
		require.NoError(t, h.Broadcast("gaming", &domain.NewMessageEvent{
			Type:      domain.EventNewMessage,
			ChannelID: "gaming",
			Message:   domain.MessagePayload{ID: 99, Author: "racer", Content: "hi"},
		}))
	}

	require.NoError(t, r.HandleJoin(context.Background(), c, "gaming"))

	events := drainEvents(t, c)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventNewMessage, events[0]["type"])
	assert.Equal(t, domain.EventChatHistory, events[1]["type"])
}

func TestChatMessageBroadcastIncludesSender(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	sender := newTestClient(t, h, "sender")
	other := newTestClient(t, h, "other")
	require.NoError(t, r.HandleJoin(ctx, sender, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, other, "gaming"))
	drainEvents(t, sender)
	drainEvents(t, other)

	require.NoError(t, r.HandleChatMessage(ctx, sender, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "hello chat",
	}))

	for _, c := range []*hub.Client{sender, other} {
		events := drainEvents(t, c)
		require.Len(t, events, 1, "client %s", c.ID)
		assert.Equal(t, domain.EventNewMessage, events[0]["type"])
		msg := events[0]["message"].(map[string]interface{})
		assert.Equal(t, "hello chat", msg["content"])
		assert.Equal(t, float64(1), msg["id"], "broadcast carries the store-assigned id")
	}
}

func TestChatMessageRequiresJoin(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)

	c := newTestClient(t, h, "outsider")
	require.NoError(t, r.HandleChatMessage(context.Background(), c, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "hello",
	}))

	events := drainEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0]["type"])
	assert.Equal(t, domain.ErrCodeNotJoined, events[0]["code"])
	assert.Empty(t, repo.messages["gaming"], "nothing persisted")
}

func TestChatMessageStoreFailureSuppressesBroadcast(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	sender := newTestClient(t, h, "sender")
	other := newTestClient(t, h, "other")
	require.NoError(t, r.HandleJoin(ctx, sender, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, other, "gaming"))
	drainEvents(t, sender)
	drainEvents(t, other)

	repo.appendErr = fmt.Errorf("%w: disk on fire", repository.ErrStoreUnavailable)
	require.NoError(t, r.HandleChatMessage(ctx, sender, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "lost",
	}))

	events := drainEvents(t, sender)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0]["type"])
	assert.Equal(t, domain.ErrCodeStoreUnavailable, events[0]["code"])

	assert.Empty(t, drainEvents(t, other), "no broadcast without a durable write")
}

func TestChatMessageValidationErrorToSenderOnly(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	sender := newTestClient(t, h, "sender")
	other := newTestClient(t, h, "other")
	require.NoError(t, r.HandleJoin(ctx, sender, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, other, "gaming"))
	drainEvents(t, sender)
	drainEvents(t, other)

	require.NoError(t, r.HandleChatMessage(ctx, sender, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "   ",
	}))

	events := drainEvents(t, sender)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ErrCodeValidation, events[0]["code"])
	assert.Empty(t, drainEvents(t, other))
}

func TestBroadcastScopedToChannel(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	gamer := newTestClient(t, h, "gamer")
	cook := newTestClient(t, h, "cook")
	require.NoError(t, r.HandleJoin(ctx, gamer, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, cook, "cooking"))
	drainEvents(t, gamer)
	drainEvents(t, cook)

	require.NoError(t, r.HandleChatMessage(ctx, gamer, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "gg",
	}))

	assert.Len(t, drainEvents(t, gamer), 1)
	assert.Empty(t, drainEvents(t, cook))
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	stayer := newTestClient(t, h, "stayer")
	leaver := newTestClient(t, h, "leaver")
	require.NoError(t, r.HandleJoin(ctx, stayer, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, leaver, "gaming"))
	drainEvents(t, stayer)
	drainEvents(t, leaver)

	require.NoError(t, r.HandleLeave(ctx, leaver, "gaming"))

	require.NoError(t, r.HandleChatMessage(ctx, stayer, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "still here",
	}))

	assert.Len(t, drainEvents(t, stayer), 1)
	assert.Empty(t, drainEvents(t, leaver))
	assert.False(t, leaver.Session.Joined("gaming"))
}

func TestLeaveUnjoinedChannelIsNoop(t *testing.T) {
	h := hub.NewHub()
	r := newTestRelay(h, newFakeMessageRepo())

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleLeave(context.Background(), c, "never-joined"))
	assert.Empty(t, drainEvents(t, c))
}

func TestDisconnectRemovesFromAllRooms(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	multi := newTestClient(t, h, "multi")
	witness := newTestClient(t, h, "witness")
	require.NoError(t, r.HandleJoin(ctx, multi, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, multi, "cooking"))
	require.NoError(t, r.HandleJoin(ctx, witness, "gaming"))
	drainEvents(t, multi)
	drainEvents(t, witness)

	require.NoError(t, r.HandleDisconnect(ctx, multi))

	assert.Equal(t, 1, h.RoomSize("gaming"))
	assert.Equal(t, 0, h.RoomSize("cooking"))
	assert.Empty(t, multi.Session.Channels())

	// Remaining members keep receiving.
	require.NoError(t, r.HandleChatMessage(ctx, witness, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "after disconnect",
	}))
	assert.Len(t, drainEvents(t, witness), 1)
}

func TestRejoinIsIdempotent(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleJoin(ctx, c, "gaming"))
	require.NoError(t, r.HandleJoin(ctx, c, "gaming"))

	assert.Equal(t, 1, h.RoomSize("gaming"))

	// Each join replays history; a single later message arrives once.
	drainEvents(t, c)
	require.NoError(t, r.HandleChatMessage(ctx, c, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "once",
	}))
	assert.Len(t, drainEvents(t, c), 1)
}

func TestAdvisoryDateParsing(t *testing.T) {
	h := hub.NewHub()
	repo := newFakeMessageRepo()
	r := newTestRelay(h, repo)
	ctx := context.Background()

	c := newTestClient(t, h, "c1")
	require.NoError(t, r.HandleJoin(ctx, c, "gaming"))
	drainEvents(t, c)

	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.HandleChatMessage(ctx, c, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "timed",
		Date:    when.Format(time.RFC3339),
	}))
	assert.True(t, repo.lastDate.Equal(when))

	// Malformed dates degrade to server time instead of rejecting the send.
	require.NoError(t, r.HandleChatMessage(ctx, c, "gaming", domain.InboundMessage{
		Author:  "ann",
		Content: "untimed",
		Date:    "yesterday-ish",
	}))
	assert.True(t, repo.lastDate.IsZero())
	assert.Len(t, drainEvents(t, c), 2)
}
