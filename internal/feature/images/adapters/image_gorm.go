// Package adapters はimagesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"safetysnap/internal/feature/images/domain/entity"
	"safetysnap/internal/feature/images/usecase"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATEです。
const pgUniqueViolation = "23505"

// LabelLedger はラベル件数台帳のうち、画像の挿入・削除と同じトランザクションで呼ばれる操作です。
// Goの慣例に従い、インターフェースは利用者（adapters）側で定義します。
type LabelLedger interface {
	Increment(ctx context.Context, tx *gorm.DB, name string) error
	Decrement(ctx context.Context, tx *gorm.DB, name string) error
}

// imageGorm はImageRepositoryインターフェースのGORM実装です。
type imageGorm struct {
	db     *gorm.DB
	ledger LabelLedger
}

var _ usecase.ImageRepository = (*imageGorm)(nil)

// NewImageRepository は指定されたDB接続とラベル台帳でimageGormの新しいインスタンスを生成します。
func NewImageRepository(db *gorm.DB, ledger LabelLedger) *imageGorm {
	return &imageGorm{db: db, ledger: ledger}
}

// DetectionJSON はdetections列に保存される1件の検出結果です。
type DetectionJSON struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// ImageModel はimagesテーブルの行です。file_hashの一意制約が重複排除の最終的な判定になります。
type ImageModel struct {
	ID             uint                                `gorm:"primaryKey"`
	Filename       string                              `gorm:"size:255;not null"`
	StoragePath    string                              `gorm:"size:512;not null"`
	FileHash       string                              `gorm:"size:64;not null;uniqueIndex"`
	FileSize       int64                               `gorm:"not null"`
	Detections     datatypes.JSONType[[]DetectionJSON] `gorm:"not null"`
	DetectionsHash string                              `gorm:"size:64;not null"`
	Label          string                              `gorm:"size:32;not null;index"`
	HelmetDetected bool                                `gorm:"not null;default:false;index:idx_images_ppe,priority:1"`
	VestDetected   bool                                `gorm:"not null;default:false;index:idx_images_ppe,priority:2"`
	UploadedAt     time.Time                           `gorm:"not null;index"`
}

func (ImageModel) TableName() string {
	return "images"
}

func toModel(e *entity.Image) ImageModel {
	dets := make([]DetectionJSON, 0, len(e.Detections))
	for _, d := range e.Detections {
		dets = append(dets, DetectionJSON{Class: d.Class, Confidence: d.Confidence, BBox: d.BBox})
	}
	return ImageModel{
		ID:             e.ID,
		Filename:       e.Filename,
		StoragePath:    e.StoragePath,
		FileHash:       e.FileHash,
		FileSize:       e.FileSize,
		Detections:     datatypes.NewJSONType(dets),
		DetectionsHash: e.DetectionsHash,
		Label:          string(e.Label),
		HelmetDetected: e.HelmetDetected,
		VestDetected:   e.VestDetected,
		UploadedAt:     e.UploadedAt,
	}
}

func toEntity(m *ImageModel) *entity.Image {
	raw := m.Detections.Data()
	dets := make([]entity.Detection, 0, len(raw))
	for _, d := range raw {
		dets = append(dets, entity.Detection{Class: d.Class, Confidence: d.Confidence, BBox: d.BBox})
	}
	return &entity.Image{
		ID:             m.ID,
		Filename:       m.Filename,
		StoragePath:    m.StoragePath,
		FileHash:       m.FileHash,
		FileSize:       m.FileSize,
		Detections:     dets,
		DetectionsHash: m.DetectionsHash,
		Label:          entity.Label(m.Label),
		HelmetDetected: m.HelmetDetected,
		VestDetected:   m.VestDetected,
		UploadedAt:     m.UploadedAt.UTC(),
	}
}

// FindByFileHash はファイルハッシュで画像を検索します。
func (r *imageGorm) FindByFileHash(ctx context.Context, fileHash string) (*entity.Image, error) {
	var m ImageModel
	if err := r.db.WithContext(ctx).Where("file_hash = ?", fileHash).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrImageNotFound
		}
		return nil, err
	}
	return toEntity(&m), nil
}

// FindByID はIDで画像を検索します。
func (r *imageGorm) FindByID(ctx context.Context, id uint) (*entity.Image, error) {
	var m ImageModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrImageNotFound
		}
		return nil, err
	}
	return toEntity(&m), nil
}

// Create はレコードを挿入し、同じトランザクションでラベル件数を加算します。
// どちらかが失敗した場合は両方ロールバックされます。
func (r *imageGorm) Create(ctx context.Context, img *entity.Image) error {
	m := toModel(img)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return r.ledger.Increment(ctx, tx, m.Label)
	})
	if err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrDuplicateFileHash
		}
		return err
	}
	img.ID = m.ID
	return nil
}

// List は条件に一致する画像をuploaded_atの降順で返します。同時刻の場合はIDの降順です。
func (r *imageGorm) List(ctx context.Context, filter entity.ImageFilter, page entity.Page) ([]entity.Image, int64, error) {
	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&ImageModel{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []ImageModel
	if err := applyFilter(r.db.WithContext(ctx), filter).
		Order("uploaded_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]entity.Image, 0, len(rows))
	for i := range rows {
		out = append(out, *toEntity(&rows[i]))
	}
	return out, total, nil
}

// Delete はレコードを削除し、同じトランザクションでラベル件数を減算します。
// 同じIDへの削除が競合した場合、減算は1回だけ行われます。
func (r *imageGorm) Delete(ctx context.Context, id uint) (*entity.Image, error) {
	var m ImageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&m).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", m.ID).Delete(&ImageModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return r.ledger.Decrement(ctx, tx, m.Label)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrImageNotFound
		}
		return nil, err
	}
	return toEntity(&m), nil
}

// Count は条件に一致する画像の件数を返します。
func (r *imageGorm) Count(ctx context.Context, filter entity.ImageFilter) (int64, error) {
	var n int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&ImageModel{}), filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func applyFilter(q *gorm.DB, f entity.ImageFilter) *gorm.DB {
	if f.Label != "" {
		q = q.Where("label = ?", string(f.Label))
	}
	if f.From != nil {
		q = q.Where("uploaded_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("uploaded_at <= ?", f.To.UTC())
	}
	if f.HelmetDetected != nil {
		q = q.Where("helmet_detected = ?", *f.HelmetDetected)
	}
	if f.VestDetected != nil {
		q = q.Where("vest_detected = ?", *f.VestDetected)
	}
	return q
}

// isDuplicateKey は一意制約違反かどうかを判定します。
// TranslateErrorが有効な場合はgorm.ErrDuplicatedKeyに変換済みですが、無効な接続でも判定できるようドライバのエラーも確認します。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
