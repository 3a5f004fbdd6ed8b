package adapters

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
	labeladapters "safetysnap/internal/feature/labels/adapters"
	labelentity "safetysnap/internal/feature/labels/domain/entity"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	helmet = entity.Detection{Class: entity.ClassHelmet, Confidence: 0.92, BBox: [4]float64{0.1, 0.1, 0.3, 0.3}}
	vest   = entity.Detection{Class: entity.ClassVest, Confidence: 0.81, BBox: [4]float64{0.2, 0.4, 0.6, 0.9}}
)

// setupTestDB prepares an in-memory SQLite database with the images and labels tables.
func setupTestDB(t *testing.T) (*gorm.DB, *labeladapters.LabelLedger, *imageGorm) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: は接続ごとに別のDBになるため1接続に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&ImageModel{}, &labeladapters.LabelModel{}), "failed to migrate tables")

	ledger := labeladapters.NewLabelLedger(db)
	require.NoError(t, ledger.Seed(context.Background(), labelentity.DefaultLabels()))

	return db, ledger, NewImageRepository(db, ledger)
}

// newImage builds a record whose hash is derived from n.
func newImage(t *testing.T, n int, uploadedAt time.Time, dets ...entity.Detection) *entity.Image {
	t.Helper()
	img, err := entity.NewImage(fmt.Sprintf("img-%d.jpg", n), fmt.Sprintf("uploads/%d.jpg", n), fmt.Sprintf("%064d", n), int64(100+n), dets, uploadedAt)
	require.NoError(t, err)
	return img
}

func snapshot(t *testing.T, ledger *labeladapters.LabelLedger) map[string]int64 {
	t.Helper()
	snap, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func TestImageGorm_CreateAndFind(t *testing.T) {
	t.Parallel()

	_, ledger, repo := setupTestDB(t)
	ctx := context.Background()

	img := newImage(t, 1, baseTime, helmet, vest)
	require.NoError(t, repo.Create(ctx, img))
	require.NotZero(t, img.ID)

	byID, err := repo.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.FileHash, byID.FileHash)
	assert.Equal(t, entity.LabelCompliant, byID.Label)
	assert.True(t, byID.HelmetDetected)
	assert.True(t, byID.VestDetected)
	assert.Equal(t, img.Detections, byID.Detections)
	assert.Equal(t, img.DetectionsHash, byID.DetectionsHash)
	assert.True(t, baseTime.Equal(byID.UploadedAt))

	byHash, err := repo.FindByFileHash(ctx, img.FileHash)
	require.NoError(t, err)
	assert.Equal(t, byID, byHash)

	assert.Equal(t, map[string]int64{"compliant": 1, "non_compliant": 0}, snapshot(t, ledger))
}

func TestImageGorm_Find_NotFound(t *testing.T) {
	t.Parallel()

	_, _, repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, 404)
	assert.ErrorIs(t, err, usecase.ErrImageNotFound)

	_, err = repo.FindByFileHash(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrImageNotFound)
}

func TestImageGorm_Create_EmptyDetections(t *testing.T) {
	t.Parallel()

	_, _, repo := setupTestDB(t)
	ctx := context.Background()

	img := newImage(t, 1, baseTime)
	require.NoError(t, repo.Create(ctx, img))

	got, err := repo.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Detections)
	assert.Empty(t, got.Detections)
	assert.Equal(t, entity.LabelNonCompliant, got.Label)
}

func TestImageGorm_Create_DuplicateHash(t *testing.T) {
	t.Parallel()

	_, ledger, repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newImage(t, 1, baseTime, helmet)))

	dup := newImage(t, 1, baseTime.Add(time.Minute), helmet, vest)
	err := repo.Create(ctx, dup)

	assert.ErrorIs(t, err, usecase.ErrDuplicateFileHash)
	assert.Zero(t, dup.ID)
	assert.Equal(t, map[string]int64{"compliant": 0, "non_compliant": 1}, snapshot(t, ledger), "a rejected insert must not touch the ledger")
}

func TestImageGorm_Create_UnknownLabelRollsBack(t *testing.T) {
	t.Parallel()

	db, _, repo := setupTestDB(t)
	ctx := context.Background()

	img := newImage(t, 1, baseTime)
	img.Label = "unlabelled"
	err := repo.Create(ctx, img)
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&ImageModel{}).Count(&n).Error)
	assert.Zero(t, n, "the insert is rolled back with the ledger update")
}

func TestImageGorm_List(t *testing.T) {
	t.Parallel()

	_, _, repo := setupTestDB(t)
	ctx := context.Background()

	// 偶数番はcompliant、奇数番はヘルメットのみ
	for i := 0; i < 15; i++ {
		dets := []entity.Detection{helmet}
		if i%2 == 0 {
			dets = append(dets, vest)
		}
		require.NoError(t, repo.Create(ctx, newImage(t, i, baseTime.Add(time.Duration(i)*time.Hour), dets...)))
	}

	from := baseTime.Add(3 * time.Hour)
	to := baseTime.Add(5 * time.Hour)

	tests := []struct {
		name      string
		filter    entity.ImageFilter
		page      entity.Page
		wantTotal int64
		wantFirst string
		wantCount int
	}{
		{
			name:      "first page, newest first",
			page:      entity.Page{Limit: 10},
			wantTotal: 15,
			wantCount: 10,
			wantFirst: "img-14.jpg",
		},
		{
			name:      "second page holds the remainder",
			page:      entity.Page{Limit: 10, Offset: 10},
			wantTotal: 15,
			wantCount: 5,
			wantFirst: "img-4.jpg",
		},
		{
			name:      "offset past the end",
			page:      entity.Page{Limit: 10, Offset: 20},
			wantTotal: 15,
			wantCount: 0,
		},
		{
			name:      "label filter",
			filter:    entity.ImageFilter{Label: entity.LabelCompliant},
			page:      entity.Page{Limit: 3},
			wantTotal: 8,
			wantCount: 3,
			wantFirst: "img-14.jpg",
		},
		{
			name:      "inclusive time bounds",
			filter:    entity.ImageFilter{From: &from, To: &to},
			page:      entity.Page{Limit: 10},
			wantTotal: 3,
			wantCount: 3,
			wantFirst: "img-5.jpg",
		},
		{
			name:      "label and time combined",
			filter:    entity.ImageFilter{Label: entity.LabelNonCompliant, From: &from, To: &to},
			page:      entity.Page{Limit: 10},
			wantTotal: 2,
			wantCount: 2,
			wantFirst: "img-5.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, total, err := repo.List(ctx, tt.filter, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			require.Len(t, images, tt.wantCount)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, images[0].Filename)
			}
			for i := 1; i < len(images); i++ {
				assert.False(t, images[i].UploadedAt.After(images[i-1].UploadedAt), "results must be newest first")
			}
		})
	}
}

func TestImageGorm_Count(t *testing.T) {
	t.Parallel()

	_, _, repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newImage(t, 1, baseTime, helmet, vest)))
	require.NoError(t, repo.Create(ctx, newImage(t, 2, baseTime, helmet)))
	require.NoError(t, repo.Create(ctx, newImage(t, 3, baseTime)))

	yes := true
	tests := []struct {
		name   string
		filter entity.ImageFilter
		want   int64
	}{
		{name: "all", want: 3},
		{name: "compliant", filter: entity.ImageFilter{Label: entity.LabelCompliant}, want: 1},
		{name: "non compliant", filter: entity.ImageFilter{Label: entity.LabelNonCompliant}, want: 2},
		{name: "helmet detected", filter: entity.ImageFilter{HelmetDetected: &yes}, want: 2},
		{name: "vest detected", filter: entity.ImageFilter{VestDetected: &yes}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestImageGorm_Delete(t *testing.T) {
	t.Parallel()

	_, ledger, repo := setupTestDB(t)
	ctx := context.Background()

	img := newImage(t, 1, baseTime, helmet, vest)
	require.NoError(t, repo.Create(ctx, img))
	require.NoError(t, repo.Create(ctx, newImage(t, 2, baseTime, helmet, vest)))

	deleted, err := repo.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, deleted.ID)
	assert.Equal(t, img.StoragePath, deleted.StoragePath)

	_, err = repo.FindByID(ctx, img.ID)
	assert.ErrorIs(t, err, usecase.ErrImageNotFound)
	assert.Equal(t, int64(1), snapshot(t, ledger)["compliant"])

	_, err = repo.Delete(ctx, img.ID)
	assert.ErrorIs(t, err, usecase.ErrImageNotFound)
	assert.Equal(t, int64(1), snapshot(t, ledger)["compliant"], "a second delete must not decrement again")
}

func TestImageGorm_LedgerMatchesLiveCounts(t *testing.T) {
	t.Parallel()

	db, ledger, repo := setupTestDB(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []uint
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dets := []entity.Detection{helmet}
			if i%3 == 0 {
				dets = append(dets, vest)
			}
			img := newImage(t, i%10, baseTime.Add(time.Duration(i)*time.Minute), dets...)
			err := repo.Create(ctx, img)
			if err != nil {
				assert.ErrorIs(t, err, usecase.ErrDuplicateFileHash)
				return
			}
			mu.Lock()
			ids = append(ids, img.ID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	require.Len(t, ids, 10, "each hash is inserted exactly once")

	for _, id := range ids[:4] {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := repo.Delete(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	type row struct {
		Label string
		Total int64
	}
	var rows []row
	require.NoError(t, db.Model(&ImageModel{}).Select("label, COUNT(*) AS total").Group("label").Scan(&rows).Error)
	live := map[string]int64{"compliant": 0, "non_compliant": 0}
	for _, r := range rows {
		live[r.Label] = r.Total
	}
	assert.Equal(t, live, snapshot(t, ledger))
}
