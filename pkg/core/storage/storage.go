package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Category 文件归属：用户上传或 AI 生成
type Category string

const (
	CategoryUpload    Category = "upload"
	CategoryGenerated Category = "generated"
)

type Storage interface {
	// Save 保存文件并返回页面可用的访问地址
	Save(ctx context.Context, category Category, name string, data []byte) (string, error)
}

// Layout 各类文件相对于存储根的目录
type Layout struct {
	UploadDir    string
	GeneratedDir string
}

func (l Layout) Dir(c Category) (string, error) {
	switch c {
	case CategoryUpload:
		return l.UploadDir, nil
	case CategoryGenerated:
		return l.GeneratedDir, nil
	}
	return "", fmt.Errorf("unknown storage category %q", c)
}

func (l Layout) dirs() []string {
	return []string{l.UploadDir, l.GeneratedDir}
}

// validName 拒绝带路径的文件名
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
