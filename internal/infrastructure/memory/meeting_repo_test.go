package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/taskflow/internal/domain"
)

func TestMeetingRepo_CRUD(t *testing.T) {
	repo := NewMeetingRepo(NewDB())
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	created := at.Add(-time.Hour)

	require.NoError(t, repo.Create(ctx, &domain.Meeting{ID: "m1", Title: "standup", CreatedAt: created, ScheduledAt: &at}))
	require.NoError(t, repo.Create(ctx, &domain.Meeting{ID: "m2", Title: "retro", CreatedAt: at}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m2", list[0].ID)

	require.NoError(t, repo.Update(ctx, &domain.Meeting{ID: "m1", Title: "daily"}))
	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "daily", got.Title)
	assert.Nil(t, got.ScheduledAt)
	assert.Equal(t, created, got.CreatedAt)

	require.NoError(t, repo.Delete(ctx, "m1"))
	_, err = repo.GetByID(ctx, "m1")
	assert.True(t, domain.Is(err, "meeting_not_found"))
}
