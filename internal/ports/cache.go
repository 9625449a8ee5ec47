package ports

import (
	"context"
	"time"
)

type (
	// CacheService stores JSON encoded values under namespaced keys.
	CacheService interface {
		// Get decodes the value of key into dest and reports whether it was found.
		Get(ctx context.Context, key string, dest any) (bool, error)
		Set(ctx context.Context, key string, value any, ttl time.Duration) error
		Delete(ctx context.Context, keys ...string) error
		// DeletePattern removes every key matching the glob pattern and returns how many were deleted.
		DeletePattern(ctx context.Context, pattern string) (int64, error)
		Ping(ctx context.Context) error
	}

	// CacheMetrics receives cache events, namespace is the entity segment of the key.
	CacheMetrics interface {
		RecordCacheEvent(ctx context.Context, namespace, event string)
	}

	// CursorStore keeps small scalar sync cursors.
	CursorStore interface {
		GetCursor(ctx context.Context, name string) (string, error)
		SetCursor(ctx context.Context, name, value string) error
	}
)
