package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoFile        = errors.New("no file selected")
	ErrExtNotAllowed = errors.New("file extension not allowed")
	ErrTooLarge      = errors.New("request exceeds upload limit")
)

// Policy 上传文件校验：扩展名白名单 + 整个请求体大小上限，不做内容嗅探
type Policy struct {
	MaxBytes int64
	allowed  map[string]struct{}
}

func NewPolicy(maxBytes int64, exts []string) Policy {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return Policy{MaxBytes: maxBytes, allowed: allowed}
}

// Allowed 文件名必须带扩展名且在白名单内（不区分大小写）
func (p Policy) Allowed(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return false
	}
	_, ok := p.allowed[strings.ToLower(filename[i+1:])]
	return ok
}

// Extensions 白名单，已排序
func (p Policy) Extensions() []string {
	exts := make([]string, 0, len(p.allowed))
	for ext := range p.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Check requestLength 为整个请求的 Content-Length，未知时传 -1
func (p Policy) Check(filename string, requestLength int64) error {
	if p.MaxBytes > 0 && requestLength > p.MaxBytes {
		return ErrTooLarge
	}
	if filename == "" {
		return ErrNoFile
	}
	if !p.Allowed(filename) {
		return fmt.Errorf("%w: %s", ErrExtNotAllowed, filename)
	}
	return nil
}

// UniqueName prefix_时间戳(微秒)_随机串_原文件名，原文件名只保留最后一段
func UniqueName(prefix, original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s_%s_%s_%s", prefix, Timestamp(now), uuid.NewString()[:8], base)
}

// Timestamp 形如 20261019153000_123456
func Timestamp(now time.Time) string {
	return fmt.Sprintf("%s_%06d", now.Format("20060102150405"), now.Nanosecond()/1000)
}
