package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore はローカルディレクトリにバイト列を保存します。参照は保存名です。
type LocalStore struct {
	dir string
}

// NewLocalStore はディレクトリを作成してLocalStoreを返します。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Store は一時ファイルに書き込んでからリネームし、途中状態のファイルを残しません。
func (s *LocalStore) Store(ctx context.Context, data []byte, suggestedName, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectName(suggestedName)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return name, nil
}

// Release は保存済みファイルを削除します。存在しない場合は成功扱いです。
func (s *LocalStore) Release(_ context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

// Path は参照に対応するファイルパスを返します。
func (s *LocalStore) Path(ref string) string {
	return filepath.Join(s.dir, ref)
}
