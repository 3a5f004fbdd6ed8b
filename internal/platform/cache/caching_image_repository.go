// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// CachingImageRepository decorates an ImageRepository with Redis caching.
// Image records never change after insert, so lookups by id are cached until the record is deleted.
// Lookups by file hash always hit the database: the unique index on file_hash decides
// whether an upload is a duplicate, and a cached hit could outlive a concurrent delete.
type CachingImageRepository struct {
	inner     usecase.ImageRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.ImageRepository = (*CachingImageRepository)(nil)

// NewCachingImageRepository decorates an ImageRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "images".
func NewCachingImageRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ImageRepository, namespace string) *CachingImageRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "images"
	}
	return &CachingImageRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindByFileHash passes through to the underlying repository.
func (c *CachingImageRepository) FindByFileHash(ctx context.Context, fileHash string) (*entity.Image, error) {
	return c.inner.FindByFileHash(ctx, fileHash)
}

// FindByID retrieves an image by id, checking cache first.
func (c *CachingImageRepository) FindByID(ctx context.Context, id uint) (*entity.Image, error) {
	return c.cached(ctx, c.idKey(id), func() (*entity.Image, error) {
		return c.inner.FindByID(ctx, id)
	})
}

// Create passes through. Misses are never cached, so there is nothing to invalidate.
func (c *CachingImageRepository) Create(ctx context.Context, img *entity.Image) error {
	return c.inner.Create(ctx, img)
}

// List passes through to the underlying repository.
func (c *CachingImageRepository) List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error) {
	return c.inner.List(ctx, filter, page)
}

// Count passes through to the underlying repository.
func (c *CachingImageRepository) Count(ctx context.Context, filter entity.ImageFilter) (int64, error) {
	return c.inner.Count(ctx, filter)
}

// Delete removes the image and invalidates its cache entry.
func (c *CachingImageRepository) Delete(ctx context.Context, id uint) (*entity.Image, error) {
	img, err := c.inner.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.rdb == nil {
		return img, nil
	}
	// Best effort: the record is gone from the database either way
	if err := c.rdb.Del(ctx, c.idKey(img.ID)).Err(); err != nil {
		slog.Warn("failed to invalidate image cache", "image_id", img.ID, "error", err)
	}
	return img, nil
}

// cached implements the read-through lookup.
func (c *CachingImageRepository) cached(ctx context.Context, key string, load func() (*entity.Image, error)) (*entity.Image, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return load()
	}

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Image
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	img, err := load()
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(img); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return img, nil
}

func (c *CachingImageRepository) idKey(id uint) string {
	return fmt.Sprintf("%s:id:%d", safe(c.namespace), id)
}
