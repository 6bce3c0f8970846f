package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore はディレクトリ配下に1キー1ファイルで永続化するStore実装。
// キー名はハッシュ化してファイル名にするため、任意の文字列キーを扱える。
// 書き込みは一時ファイル経由のリネームで行い、中途半端な内容が残らないようにする。
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore はdir配下に永続化するFileStoreを生成する。
// ディレクトリが存在しない場合は作成する。
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ストアディレクトリの作成に失敗しました: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get はキーに対応する値を返す。
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ストアの読み出しに失敗しました: %w", err)
	}
	return string(data), true, nil
}

// Set はキーに値を書き込む。
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "kv-*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ストアへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ストアの更新に失敗しました: %w", err)
	}
	return nil
}

// Remove は指定されたキーをすべて削除する。
func (s *FileStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ストアからの削除に失敗しました: %w", err)
		}
	}
	return nil
}

// path はキーに対応するファイルパスを返す。
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".kv")
}
