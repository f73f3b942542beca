package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RecitationKeyPrefix = "recitation:%d"
	PublicListKey       = "recitations:public:first"
	RecitationTTL       = 30 * time.Minute
	ListTTL             = 2 * time.Minute
)

func RecitationKey(id uint) string {
	return fmt.Sprintf(RecitationKeyPrefix, id)
}

// Aside is a cache-aside helper: fill dest from the cache when the key is
// present, otherwise call fetch and store its result under key for ttl.
// A nil or failing Redis client degrades to calling fetch directly.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
			return nil
		}
		// Corrupt entry: drop it and fall through to the source of truth.
		client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		// Redis unavailable mid-flight; serve from the store.
		return fetch()
	}

	if err := fetch(); err != nil {
		return err
	}

	if encoded, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, encoded, ttl)
	}
	return nil
}

// Invalidate removes a single key.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateRecitation drops the cached detail row for a recitation.
func InvalidateRecitation(ctx context.Context, id uint) {
	Invalidate(ctx, RecitationKey(id))
}

// InvalidatePublicList drops the cached first page of the public feed.
// Called on create, status transitions, and like toggles.
func InvalidatePublicList(ctx context.Context) {
	Invalidate(ctx, PublicListKey)
}
