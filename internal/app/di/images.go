package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	imageadapters "safetysnap/internal/feature/images/adapters"
	"safetysnap/internal/feature/images/usecase"
	labeladapters "safetysnap/internal/feature/labels/adapters"
	"safetysnap/internal/platform/cache"
)

// NewImageRepository はラベル台帳と同一トランザクションで動くImageRepositoryを作成します。
// Redisが利用可能な場合はキャッシュでラップします。
func NewImageRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) usecase.ImageRepository {
	repo := imageadapters.NewImageRepository(db, labeladapters.NewLabelLedger(db))
	if rdb == nil {
		return repo
	}
	return cache.NewCachingImageRepository(rdb, ttl, repo, "images")
}
