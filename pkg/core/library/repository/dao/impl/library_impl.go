package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/core/library/model"
	"qingmo/pkg/core/library/repository/dao"
)

// likeEscaper 转义用户输入中的通配符，配合 ESCAPE '!' 使用
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

type GormLibraryRepository struct {
	db *gorm.DB
}

var _ dao.LibraryRepository = (*GormLibraryRepository)(nil)

func NewGormLibraryRepository(db *gorm.DB) *GormLibraryRepository {
	return &GormLibraryRepository{db: db}
}

func (r *GormLibraryRepository) ListDynasties(ctx context.Context) ([]model.Dynasty, error) {
	var dynasties []model.Dynasty
	if err := r.db.WithContext(ctx).Order("start_year").Order("id").Find(&dynasties).Error; err != nil {
		return nil, fmt.Errorf("list dynasties: %w", apperrors.WrapGormError(err))
	}
	return dynasties, nil
}

func (r *GormLibraryRepository) ListPoetryByDynasty(ctx context.Context, dynastyID int64) ([]model.PoetryWithDynasty, error) {
	var list []model.PoetryWithDynasty
	err := r.db.WithContext(ctx).
		Table("poetry AS p").
		Select("p.*, d.name AS dynasty_name").
		Joins("LEFT JOIN dynasty d ON p.dynasty_id = d.id").
		Where("p.dynasty_id = ?", dynastyID).
		Order("p.id").
		Scan(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list poetry: %w", apperrors.WrapGormError(err))
	}
	return list, nil
}

func (r *GormLibraryRepository) ListZitie(ctx context.Context, dynastyID *int64) ([]model.Zitie, error) {
	q := r.db.WithContext(ctx).Order("id")
	if dynastyID != nil {
		q = q.Where("dynasty_id = ?", *dynastyID)
	}

	var list []model.Zitie
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list zitie: %w", apperrors.WrapGormError(err))
	}
	return list, nil
}

func (r *GormLibraryRepository) LimitZitie(ctx context.Context, limit int) ([]model.Zitie, error) {
	var list []model.Zitie
	if err := r.db.WithContext(ctx).Order("id").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("limit zitie: %w", apperrors.WrapGormError(err))
	}
	return list, nil
}

func (r *GormLibraryRepository) SearchZitie(ctx context.Context, field dao.SearchField, keyword string) ([]model.Zitie, error) {
	switch field {
	case dao.FieldTitle, dao.FieldAuthor, dao.FieldContent:
	default:
		return nil, fmt.Errorf("unsupported search field %q", field)
	}

	var list []model.Zitie
	// field 已在上面限定为白名单，可以安全拼进 SQL
	err := r.db.WithContext(ctx).
		Where(string(field)+" LIKE ? ESCAPE '!'", containsPattern(keyword)).
		Order("id").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("search zitie: %w", apperrors.WrapGormError(err))
	}
	return list, nil
}

func (r *GormLibraryRepository) FindZitieByTitle(ctx context.Context, marker string) (model.Zitie, error) {
	var z model.Zitie
	err := r.db.WithContext(ctx).
		Where("title LIKE ? ESCAPE '!'", containsPattern(marker)).
		Order("id").
		Take(&z).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Zitie{}, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return model.Zitie{}, fmt.Errorf("find zitie by title: %w", apperrors.WrapGormError(err))
	}
	return z, nil
}

func (r *GormLibraryRepository) CountZitie(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Zitie{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count zitie: %w", apperrors.WrapGormError(err))
	}
	return n, nil
}

func (r *GormLibraryRepository) ZitieAt(ctx context.Context, offset int) (model.Zitie, error) {
	var z model.Zitie
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(1).Take(&z).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Zitie{}, apperrors.ErrRecordNotFound
	}
	if err != nil {
		return model.Zitie{}, fmt.Errorf("zitie at %d: %w", offset, apperrors.WrapGormError(err))
	}
	return z, nil
}
