// Package usecase はimagesフィーチャーのビジネスロジック（取り込みパイプラインと照会・削除）を実装します。
package usecase

import "errors"

var (
	// ErrImageNotFound is returned when no image record matches the given ID or file hash.
	ErrImageNotFound = errors.New("image not found")

	// ErrDuplicateFileHash is returned by the repository when a record with the same file hash
	// has already been committed. The ingestion pipeline resolves it by reading the existing record.
	ErrDuplicateFileHash = errors.New("image with this file hash already exists")

	// ErrInvalidImage is returned when the uploaded payload is empty or too large.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidFilter is returned when list filter or pagination parameters are out of range.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrDetectorFailed is returned when the detector reports an error or returns malformed output.
	// No record is persisted; the upload may be retried.
	ErrDetectorFailed = errors.New("detector failed")

	// ErrDetectorTimeout is returned when the detector does not answer within the configured bound.
	ErrDetectorTimeout = errors.New("detector timed out")

	// ErrStorage is returned when the blob storage collaborator fails to store the upload.
	ErrStorage = errors.New("blob storage failed")
)
