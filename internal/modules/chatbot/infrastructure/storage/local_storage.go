package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ChatNest/pkg/util"
)

// FileStorage 上传文件存储
type FileStorage interface {
	// Save 写入 dir 下并返回相对路径
	Save(ctx context.Context, dir, ext string, data []byte) (string, error)
	Delete(ctx context.Context, relPath string) error
}

type localStorage struct {
	root string
}

// NewLocalStorage 以 root 为根目录的本地磁盘存储
func NewLocalStorage(root string) FileStorage {
	return &localStorage{root: root}
}

func (s *localStorage) Save(ctx context.Context, dir, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(ext, ".")
	rel := filepath.ToSlash(filepath.Join(dir, fmt.Sprintf("%s.%s", util.GenerateShortUUID(), ext)))
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *localStorage) Delete(ctx context.Context, relPath string) error {
	if strings.TrimSpace(relPath) == "" {
		return nil
	}
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve 拒绝跳出根目录的路径
func (s *localStorage) resolve(rel string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", rel)
	}
	return full, nil
}
