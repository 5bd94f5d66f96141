package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/taskhub/task-management-api/internal/constants"
	"github.com/taskhub/task-management-api/internal/dto"
)

// TaskListCache accelerates paginated task listings. Entries are keyed by
// (user, page, limit); filters are deliberately not part of the key, so every
// mutation flushes all cached pages for the affected users rather than
// targeting individual keys.
type TaskListCache struct {
	client *redis.Client
}

func NewTaskListCache(client *redis.Client) *TaskListCache {
	return &TaskListCache{client: client}
}

func listKey(userID uint64, page, limit int) string {
	return fmt.Sprintf("user_tasks:%d:page_%d:limit_%d", userID, page, limit)
}

// Get returns the cached listing for the key, or nil on a miss. A payload
// that fails to deserialize is deleted and reported as a miss.
func (c *TaskListCache) Get(ctx context.Context, userID uint64, page, limit int) (*dto.TaskListResponse, error) {
	key := listKey(userID, page, limit)

	payload, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached listing: %w", err)
	}

	var result dto.TaskListResponse
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		log.Printf("Dropping corrupted cache entry %s: %v", key, err)
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			log.Printf("Failed to delete corrupted cache entry %s: %v", key, delErr)
		}
		return nil, nil
	}

	return &result, nil
}

// Set stores a listing result under the key with the standard TTL.
func (c *TaskListCache) Set(ctx context.Context, userID uint64, page, limit int, result *dto.TaskListResponse) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize listing: %w", err)
	}

	key := listKey(userID, page, limit)
	if err := c.client.Set(ctx, key, payload, constants.TaskListCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache listing: %w", err)
	}

	return nil
}

// InvalidateUsers deletes every cached listing page for each given user.
// Filter combinations are unbounded, so invalidation is a full per-user
// flush via SCAN on the user's key prefix.
func (c *TaskListCache) InvalidateUsers(ctx context.Context, userIDs ...uint64) error {
	for _, userID := range userIDs {
		pattern := fmt.Sprintf("user_tasks:%d:*", userID)

		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan cache keys for user %d: %w", userID, err)
			}

			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("failed to delete cache keys for user %d: %w", userID, err)
				}
			}

			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	return nil
}
