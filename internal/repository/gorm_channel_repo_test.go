package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-tv/backend/internal/domain"
)

func TestChannelCreateAssignsIDs(t *testing.T) {
	repo := NewGormChannelRepository(setupTestDB(t))

	ch := &domain.Channel{Title: "alice's channel"}
	require.NoError(t, repo.Create(context.Background(), ch))

	assert.NotEmpty(t, ch.ID)
	assert.NotEmpty(t, ch.StreamKey)

	got, err := repo.GetByID(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice's channel", got.Title)
	assert.False(t, got.IsActive)
}

func TestChannelGetByIDNotFound(t *testing.T) {
	repo := NewGormChannelRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelUpdate(t *testing.T) {
	repo := NewGormChannelRepository(setupTestDB(t))
	ctx := context.Background()

	ch := &domain.Channel{Title: "before"}
	require.NoError(t, repo.Create(ctx, ch))

	ch.Title = "after"
	ch.Description = "now with description"
	require.NoError(t, repo.Update(ctx, ch))

	got, err := repo.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, "now with description", got.Description)

	err = repo.Update(ctx, &domain.Channel{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncLiveStatus(t *testing.T) {
	repo := NewGormChannelRepository(setupTestDB(t))
	ctx := context.Background()

	a := &domain.Channel{Title: "a"}
	b := &domain.Channel{Title: "b"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.SyncLiveStatus(ctx, []string{a.StreamKey}))

	gotA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gotA.IsActive)
	assert.False(t, gotB.IsActive)

	// Stream ended: no keys live, everything goes inactive.
	require.NoError(t, repo.SyncLiveStatus(ctx, nil))
	gotA, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, gotA.IsActive)
}
