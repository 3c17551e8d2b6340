package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/repository"
)

type channelFixture struct {
	svc      ChannelService
	users    *memUserRepo
	channels *memChannelRepo
	messages *pagedMessageRepo
	storage  *memStorage
	presence fixedPresence
}

func newChannelFixture() *channelFixture {
	f := &channelFixture{
		users:    newMemUserRepo(),
		channels: newMemChannelRepo(),
		messages: newPagedMessageRepo(),
		storage:  newMemStorage(),
		presence: fixedPresence{viewers: make(map[string]int)},
	}
	f.svc = NewChannelService(f.channels, f.users, f.messages, f.presence, f.storage, 100)
	return f
}

func (f *channelFixture) addUserWithChannel(t *testing.T, username string) *domain.User {
	t.Helper()
	ctx := context.Background()
	channel := &domain.Channel{Title: username}
	require.NoError(t, f.channels.Create(ctx, channel))
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		ChannelID:    channel.ID,
	}
	require.NoError(t, f.users.Create(ctx, user))
	return user
}

func TestChannelDetails(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	owner := f.addUserWithChannel(t, "ann")
	viewer := f.addUserWithChannel(t, "bob")
	f.messages.seed(owner.ChannelID, 3)
	f.presence.viewers[owner.ChannelID] = 7
	require.NoError(t, f.users.Follow(ctx, viewer.ID, owner.ChannelID))

	details, err := f.svc.Details(ctx, owner.ChannelID, viewer.ID)
	require.NoError(t, err)

	assert.Equal(t, owner.ChannelID, details.ID)
	assert.Equal(t, 7, details.Viewers)
	assert.True(t, details.Following)
	assert.Len(t, details.Messages, 3)

	// Anonymous viewer: no follow state, same channel data.
	anon, err := f.svc.Details(ctx, owner.ChannelID, "")
	require.NoError(t, err)
	assert.False(t, anon.Following)
}

func TestChannelDetailsUnknownChannel(t *testing.T) {
	f := newChannelFixture()

	_, err := f.svc.Details(context.Background(), "missing", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateSettingsOwnership(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	owner := f.addUserWithChannel(t, "ann")
	stranger := f.addUserWithChannel(t, "bob")

	title := "Ann plays roguelikes"
	desc := "weeknights"
	updated, err := f.svc.UpdateSettings(ctx, owner.ID, owner.ChannelID, ChannelUpdate{
		Title:       &title,
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, desc, updated.Description)

	_, err = f.svc.UpdateSettings(ctx, stranger.ID, owner.ChannelID, ChannelUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	empty := "   "
	_, err = f.svc.UpdateSettings(ctx, owner.ID, owner.ChannelID, ChannelUpdate{Title: &empty})
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestUploadAvatar(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	owner := f.addUserWithChannel(t, "ann")

	url, err := f.svc.UploadAvatar(ctx, owner.ID, owner.ChannelID,
		strings.NewReader("png-bytes"), 9, "image/png", "avatar.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/static/avatars/"+owner.ChannelID+"/"))

	channel, err := f.channels.GetByID(ctx, owner.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, url, channel.AvatarURL)

	_, err = f.svc.UploadAvatar(ctx, owner.ID, owner.ChannelID,
		strings.NewReader("exe"), 3, "application/octet-stream", "avatar.exe")
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestStreamKeyOwnerOnly(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	owner := f.addUserWithChannel(t, "ann")
	stranger := f.addUserWithChannel(t, "bob")

	key, err := f.svc.StreamKey(ctx, owner.ID, owner.ChannelID)
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	_, err = f.svc.StreamKey(ctx, stranger.ID, owner.ChannelID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFollowUnknownChannel(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	viewer := f.addUserWithChannel(t, "bob")
	err := f.svc.Follow(ctx, viewer.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFollowRoundTrip(t *testing.T) {
	f := newChannelFixture()
	ctx := context.Background()

	owner := f.addUserWithChannel(t, "ann")
	viewer := f.addUserWithChannel(t, "bob")

	require.NoError(t, f.svc.Follow(ctx, viewer.ID, owner.ChannelID))
	followed, err := f.svc.FollowedChannels(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, followed, 1)
	assert.Equal(t, owner.ChannelID, followed[0].ID)

	require.NoError(t, f.svc.Unfollow(ctx, viewer.ID, owner.ChannelID))
	followed, err = f.svc.FollowedChannels(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Empty(t, followed)
}
