package dao

import (
	"context"

	"qingmo/pkg/core/library/model"
)

// SearchField 字典检索字段
type SearchField string

const (
	FieldTitle   SearchField = "title"
	FieldAuthor  SearchField = "author"
	FieldContent SearchField = "content"
)

type LibraryRepository interface {
	ListDynasties(ctx context.Context) ([]model.Dynasty, error)
	ListPoetryByDynasty(ctx context.Context, dynastyID int64) ([]model.PoetryWithDynasty, error)
	// ListZitie dynastyID 为 nil 时返回全部
	ListZitie(ctx context.Context, dynastyID *int64) ([]model.Zitie, error)
	LimitZitie(ctx context.Context, limit int) ([]model.Zitie, error)
	SearchZitie(ctx context.Context, field SearchField, keyword string) ([]model.Zitie, error)
	// FindZitieByTitle 返回第一条标题包含 marker 的字帖，没有时返回 ErrRecordNotFound
	FindZitieByTitle(ctx context.Context, marker string) (model.Zitie, error)
	CountZitie(ctx context.Context) (int64, error)
	ZitieAt(ctx context.Context, offset int) (model.Zitie, error)
}
