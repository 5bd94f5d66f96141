package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhub/task-management-api/internal/constants"
	"github.com/taskhub/task-management-api/internal/dto"
)

func setupTaskListCache(t *testing.T) (*TaskListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTaskListCache(client), mr
}

func samplePage() *dto.TaskListResponse {
	return &dto.TaskListResponse{
		Total: 1,
		Page:  1,
		Limit: 10,
		Tasks: []dto.TaskDTO{{ID: 42, Title: "Cached task"}},
	}
}

func TestTaskListCache_MissReturnsNil(t *testing.T) {
	c, _ := setupTaskListCache(t)

	got, err := c.Get(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskListCache_SetGetRoundTrip(t *testing.T) {
	c, mr := setupTaskListCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 1, 10, samplePage()))
	assert.True(t, mr.Exists("user_tasks:1:page_1:limit_10"))

	ttl := mr.TTL("user_tasks:1:page_1:limit_10")
	assert.Equal(t, constants.TaskListCacheTTL, ttl)

	got, err := c.Get(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 1, got.Total)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "Cached task", got.Tasks[0].Title)

	// A different page is a separate entry.
	got, err = c.Get(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskListCache_CorruptedEntryTreatedAsMiss(t *testing.T) {
	c, mr := setupTaskListCache(t)

	require.NoError(t, mr.Set("user_tasks:1:page_1:limit_10", "{not json"))

	got, err := c.Get(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The bad entry was dropped so it cannot be served again.
	assert.False(t, mr.Exists("user_tasks:1:page_1:limit_10"))
}

func TestTaskListCache_InvalidateUsers(t *testing.T) {
	c, mr := setupTaskListCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 1, 10, samplePage()))
	require.NoError(t, c.Set(ctx, 1, 2, 10, samplePage()))
	require.NoError(t, c.Set(ctx, 2, 1, 10, samplePage()))
	require.NoError(t, c.Set(ctx, 3, 1, 10, samplePage()))

	require.NoError(t, c.InvalidateUsers(ctx, 1, 3))

	// Every page of users 1 and 3 is gone, user 2 is untouched.
	assert.False(t, mr.Exists("user_tasks:1:page_1:limit_10"))
	assert.False(t, mr.Exists("user_tasks:1:page_2:limit_10"))
	assert.False(t, mr.Exists("user_tasks:3:page_1:limit_10"))
	assert.True(t, mr.Exists("user_tasks:2:page_1:limit_10"))
}

func TestTaskListCache_InvalidateNoKeysIsNoop(t *testing.T) {
	c, _ := setupTaskListCache(t)

	assert.NoError(t, c.InvalidateUsers(context.Background(), 99))
}
