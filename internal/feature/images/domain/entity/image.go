package entity

import "time"

// Image は処理済みの1件のアップロードを表します。
// Label, HelmetDetected, VestDetected は常に Detections から Classify で導出されます。
type Image struct {
	ID             uint        // ストアが採番するID
	Filename       string      // 元のファイル名（識別には使わない）
	StoragePath    string      // 外部ストレージ上の参照
	FileHash       string      // アップロードバイト列のSHA-256（一意）
	FileSize       int64       // バイト長
	Detections     []Detection // 検出結果
	DetectionsHash string      // 正規化した検出結果のハッシュ
	Label          Label
	HelmetDetected bool
	VestDetected   bool
	UploadedAt     time.Time
}

// NewImage は検出結果からラベルと検出結果ハッシュを導出してImageを組み立てます。
func NewImage(filename, storagePath, fileHash string, fileSize int64, dets []Detection, uploadedAt time.Time) (*Image, error) {
	if dets == nil {
		dets = []Detection{}
	}
	hash, err := DetectionsHash(dets)
	if err != nil {
		return nil, err
	}
	label, helmet, vest := Classify(dets)
	return &Image{
		Filename:       filename,
		StoragePath:    storagePath,
		FileHash:       fileHash,
		FileSize:       fileSize,
		Detections:     dets,
		DetectionsHash: hash,
		Label:          label,
		HelmetDetected: helmet,
		VestDetected:   vest,
		UploadedAt:     uploadedAt,
	}, nil
}

// ImageFilter は一覧・件数取得の絞り込み条件です。ゼロ値のフィールドは条件に含めません。
type ImageFilter struct {
	Label          Label
	From           *time.Time // uploaded_at >= From
	To             *time.Time // uploaded_at <= To
	HelmetDetected *bool
	VestDetected   *bool
}

// Page はページネーションの指定です。
type Page struct {
	Limit  int
	Offset int
}
