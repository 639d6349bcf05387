package cache

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	directoryKeyPrefix = "directory:"
	directoryTTL       = 60 * time.Second
)

// GetDirectory returns the cached directory response for a consumer entity,
// or false when absent. Cache errors degrade to a miss.
func GetDirectory(ctx context.Context, entityID string) ([]byte, bool) {
	if Client == nil {
		return nil, false
	}
	data, err := Client.Get(ctx, directoryKeyPrefix+entityID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] directory get failed: %v", err)
		}
		return nil, false
	}
	return data, true
}

// SetDirectory caches a directory response for a consumer entity
func SetDirectory(ctx context.Context, entityID string, data []byte) {
	if Client == nil {
		return
	}
	if err := Client.Set(ctx, directoryKeyPrefix+entityID, data, directoryTTL).Err(); err != nil {
		log.Printf("[Cache] directory set failed: %v", err)
	}
}

// InvalidateDirectory drops every cached directory view. Called after any
// write that changes what the directory shows (publish, unpublish, toggle,
// delete). Failures are logged only; the write has already committed.
func InvalidateDirectory(ctx context.Context) {
	if Client == nil {
		return
	}
	keys, err := Client.Keys(ctx, directoryKeyPrefix+"*").Result()
	if err != nil {
		log.Printf("[Cache] directory invalidation scan failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := Client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] directory invalidation failed: %v", err)
	}
}
