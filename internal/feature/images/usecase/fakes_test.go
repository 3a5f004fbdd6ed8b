package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// memoryRepository はImageRepositoryのインメモリ実装です。file_hashの一意制約とラベル件数を再現します。
type memoryRepository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]entity.Image
	counts map[entity.Label]int64

	// beforeCreate はCreateのロック取得前に呼ばれます（競合の再現用）。
	beforeCreate func(img *entity.Image)
	createErr    error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byID: map[uint]entity.Image{}, counts: map[entity.Label]int64{}}
}

func (r *memoryRepository) FindByFileHash(ctx context.Context, fileHash string) (*entity.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.byID {
		if img.FileHash == fileHash {
			out := img
			return &out, nil
		}
	}
	return nil, usecase.ErrImageNotFound
}

func (r *memoryRepository) FindByID(ctx context.Context, id uint) (*entity.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.byID[id]
	if !ok {
		return nil, usecase.ErrImageNotFound
	}
	return &img, nil
}

func (r *memoryRepository) Create(ctx context.Context, img *entity.Image) error {
	if r.beforeCreate != nil {
		r.beforeCreate(img)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.FileHash == img.FileHash {
			return usecase.ErrDuplicateFileHash
		}
	}
	r.nextID++
	img.ID = r.nextID
	r.byID[img.ID] = *img
	r.counts[img.Label]++
	return nil
}

func (r *memoryRepository) List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Image
	for _, img := range r.byID {
		if filter.Label != "" && img.Label != filter.Label {
			continue
		}
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if page.Offset >= len(out) {
		return []entity.Image{}, total, nil
	}
	end := min(page.Offset+page.Limit, len(out))
	return out[page.Offset:end], total, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id uint) (*entity.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.byID[id]
	if !ok {
		return nil, usecase.ErrImageNotFound
	}
	delete(r.byID, id)
	if r.counts[img.Label] > 0 {
		r.counts[img.Label]--
	}
	return &img, nil
}

func (r *memoryRepository) Count(ctx context.Context, filter entity.ImageFilter) (int64, error) {
	_, total, err := r.List(ctx, filter, entity.Page{Limit: 1})
	return total, err
}

func (r *memoryRepository) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *memoryRepository) count(l entity.Label) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[l]
}

// mockDetector はDetectorインターフェースのモック実装です。
type mockDetector struct {
	mu          sync.Mutex
	DetectFunc  func(ctx context.Context, imageData []byte) ([]entity.Detection, error)
	DetectCalls int
}

func (m *mockDetector) Detect(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	m.mu.Lock()
	m.DetectCalls++
	m.mu.Unlock()
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, imageData)
	}
	return nil, errors.New("DetectFunc is not implemented")
}

func (m *mockDetector) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DetectCalls
}

// mockStorage はBlobStorageインターフェースのモック実装です。
type mockStorage struct {
	mu       sync.Mutex
	StoreErr error
	stored   []string
	released map[string]int
}

func newMockStorage() *mockStorage {
	return &mockStorage{released: map[string]int{}}
}

func (m *mockStorage) Store(ctx context.Context, data []byte, suggestedName, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErr != nil {
		return "", m.StoreErr
	}
	ref := fmt.Sprintf("blob-%d-%s", len(m.stored), suggestedName)
	m.stored = append(m.stored, ref)
	return ref, nil
}

func (m *mockStorage) Release(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released[ref]++
	return nil
}

func (m *mockStorage) storedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

func (m *mockStorage) releasedCount(ref string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[ref]
}

func (m *mockStorage) totalReleased() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.released {
		n += c
	}
	return n
}

// mockPublisher はEventPublisherインターフェースのモック実装です。
type mockPublisher struct {
	mu     sync.Mutex
	events []entity.ImageEvent
	err    error
}

func (m *mockPublisher) PublishImageEvent(ctx context.Context, evt entity.ImageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *mockPublisher) published() []entity.ImageEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ImageEvent(nil), m.events...)
}

var (
	helmetDet = entity.Detection{Class: entity.ClassHelmet, Confidence: 0.9, BBox: [4]float64{0.1, 0.1, 0.3, 0.3}}
	vestDet   = entity.Detection{Class: entity.ClassVest, Confidence: 0.8, BBox: [4]float64{0.2, 0.4, 0.6, 0.9}}
)

func detectReturning(dets ...entity.Detection) func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
	return func(ctx context.Context, imageData []byte) ([]entity.Detection, error) {
		return dets, nil
	}
}
