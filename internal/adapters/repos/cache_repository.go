package repos

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const (
	CacheEventHit    = "hit"
	CacheEventMiss   = "miss"
	CacheEventSet    = "set"
	CacheEventDelete = "delete"
	CacheEventError  = "error"

	// gzipMarker prefixes compressed values, JSON documents never start with it.
	gzipMarker byte = 0x01

	cursorNamespace = "cursor"
)

// CacheRepository is the redis backed CacheService and CursorStore.
type CacheRepository struct {
	client    redis.Cmdable
	prefix    string
	ttl       time.Duration
	threshold int
	scanCount int64
	metrics   ports.CacheMetrics
	logger    infrastructure.Logger
}

func NewCacheRepository(
	client redis.Cmdable,
	cfg config.CacheConfig,
	metrics ports.CacheMetrics,
	logger infrastructure.Logger,
) *CacheRepository {
	scanCount := cfg.ScanCount
	if scanCount <= 0 {
		scanCount = 500
	}

	return &CacheRepository{
		client:    client,
		prefix:    strings.TrimSuffix(cfg.KeyPrefix, ":"),
		ttl:       cfg.DefaultExpiry,
		threshold: cfg.CompressionThreshold,
		scanCount: scanCount,
		metrics:   metrics,
		logger:    logger.Component("cache"),
	}
}

func (c *CacheRepository) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(ctx, key, CacheEventMiss)

		return false, nil
	}

	if err != nil {
		c.record(ctx, key, CacheEventError)

		return false, fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}

	payload, err := decompress(raw)
	if err != nil {
		c.record(ctx, key, CacheEventError)

		return false, fmt.Errorf("failed to decompress cached %s: %w", key, err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		c.record(ctx, key, CacheEventError)

		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	c.record(ctx, key, CacheEventHit)

	return true, nil
}

// Set stores value as JSON, ttl <= 0 falls back to the configured default expiry.
func (c *CacheRepository) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	if c.threshold > 0 && len(payload) > c.threshold {
		payload, err = compress(payload)
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", key, err)
		}
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		c.record(ctx, key, CacheEventError)

		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}

	c.record(ctx, key, CacheEventSet)

	return nil
}

func (c *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, c.key(key))
	}

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		c.record(ctx, keys[0], CacheEventError)

		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}

	for _, key := range keys {
		c.record(ctx, key, CacheEventDelete)
	}

	return nil
}

// DeletePattern walks the keyspace with SCAN and deletes the matches batch by batch.
// Cursors are state rather than cache entries and survive every pattern.
func (c *CacheRepository) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)

	match := c.key(pattern)
	cursors := c.key(cacheKey(cursorNamespace, ""))

	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, c.scanCount).Result()
		if err != nil {
			c.record(ctx, pattern, CacheEventError)

			return deleted, fmt.Errorf("%w: failed to scan %s: %w", domain.ErrCacheUnavailable, match, err)
		}

		keys = slices.DeleteFunc(keys, func(key string) bool {
			return strings.HasPrefix(key, cursors)
		})

		if len(keys) > 0 {
			removed, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.record(ctx, pattern, CacheEventError)

				return deleted, fmt.Errorf("%w: failed to delete %s: %w", domain.ErrCacheUnavailable, match, err)
			}

			deleted += removed
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		c.record(ctx, pattern, CacheEventDelete)
	}

	c.logger.Debug().Str("pattern", match).Int64("deleted", deleted).Msg("cache pattern invalidated")

	return deleted, nil
}

func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetCursor returns an empty string when the cursor was never written.
func (c *CacheRepository) GetCursor(ctx context.Context, name string) (string, error) {
	value, err := c.client.Get(ctx, c.key(cacheKey(cursorNamespace, name))).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to read cursor %s: %w", name, err)
	}

	return value, nil
}

// SetCursor persists the cursor without expiry.
func (c *CacheRepository) SetCursor(ctx context.Context, name, value string) error {
	if err := c.client.Set(ctx, c.key(cacheKey(cursorNamespace, name)), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cursor %s: %w", name, err)
	}

	return nil
}

func (c *CacheRepository) key(key string) string {
	if c.prefix == "" {
		return key
	}

	return c.prefix + ":" + key
}

func (c *CacheRepository) record(ctx context.Context, key, event string) {
	if c.metrics == nil {
		return
	}

	c.metrics.RecordCacheEvent(ctx, namespaceOf(key), event)
}

// Remember serves key from the cache or loads, stores and returns it. Cache
// failures are logged and never fail the read.
func Remember[T any](
	ctx context.Context,
	cache ports.CacheService,
	logger infrastructure.Logger,
	key string,
	ttl time.Duration,
	loader func(context.Context) (T, error),
) (T, error) {
	if cache == nil {
		return loader(ctx)
	}

	var cached T

	found, err := cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to the database")
	}

	if err == nil && found {
		return cached, nil
	}

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}

	if err := cache.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	return value, nil
}

// cacheKey joins the entity and id segments, e.g. order:<uuid>.
func cacheKey(entity string, parts ...string) string {
	return strings.Join(append([]string{entity}, parts...), ":")
}

// listKey hashes the query arguments into entity:list:<hash>.
func listKey(entity string, args ...any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = fmt.Appendf(nil, "%v", args)
	}

	sum := sha256.Sum256(encoded)

	return cacheKey(entity, "list", hex.EncodeToString(sum[:8]))
}

func listPattern(entity string) string {
	return cacheKey(entity, "list", "*")
}

func namespaceOf(key string) string {
	namespace, _, _ := strings.Cut(key, ":")

	return namespace
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(gzipMarker)

	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(payload); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompress(raw []byte) ([]byte, error) {
	if len(raw) == 0 || raw[0] != gzipMarker {
		return raw, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(raw[1:]))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
