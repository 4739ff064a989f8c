package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Local 写入本地静态目录，由 Hertz 静态路由对外提供
type Local struct {
	root      string
	urlPrefix string
	layout    Layout
}

func NewLocal(root, urlPrefix string, layout Layout) (*Local, error) {
	for _, dir := range layout.dirs() {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &Local{root: root, urlPrefix: urlPrefix, layout: layout}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) Save(_ context.Context, category Category, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	dir, err := l.layout.Dir(category)
	if err != nil {
		return "", err
	}

	full := filepath.Join(l.root, filepath.FromSlash(dir), name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", full, err)
	}
	return path.Join("/", l.urlPrefix, dir, name), nil
}

// Prune 删除修改时间早于 olderThan 的文件，返回删除数量
func (l *Local) Prune(olderThan time.Time) (int, error) {
	removed := 0
	for _, dir := range l.layout.dirs() {
		base := filepath.Join(l.root, filepath.FromSlash(dir))
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, err
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(olderThan) {
				if err := os.Remove(filepath.Join(base, e.Name())); err != nil && !os.IsNotExist(err) {
					return removed, err
				}
				removed++
			}
		}
	}
	return removed, nil
}
