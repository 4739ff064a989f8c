package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"qingmo/pkg/common/clock"
	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/core/library/model"
	"qingmo/pkg/core/library/repository/dao"
)

const (
	// NewYearMarker 元旦当天优先推荐标题含该词的字帖
	NewYearMarker = "元日"
	// DictionaryDefaultLimit 字典页无关键词时展示的条数
	DictionaryDefaultLimit = 10
)

type HomePage struct {
	DailyRecommend *model.Zitie
	Dynasties      []model.Dynasty
}

type DynastyPage struct {
	Dynasties  []model.Dynasty
	PoetryList []model.PoetryWithDynasty
	SelectedID string
}

type CopybookPage struct {
	Dynasties       []model.Dynasty
	ZitieList       []model.Zitie
	SelectedDynasty string
}

type DictionaryPage struct {
	Results    []model.Zitie
	SearchType string
	Keyword    string
}

// LibraryService 朝代、古诗与字帖的只读查询
type LibraryService struct {
	repo  dao.LibraryRepository
	clock clock.Clock
	intn  func(n int) int
}

type Option func(*LibraryService)

func WithClock(c clock.Clock) Option {
	return func(s *LibraryService) { s.clock = c }
}

// WithRandom 替换随机数来源，n>0
func WithRandom(intn func(n int) int) Option {
	return func(s *LibraryService) { s.intn = intn }
}

func NewLibraryService(repo dao.LibraryRepository, opts ...Option) *LibraryService {
	s := &LibraryService{
		repo:  repo,
		clock: clock.NewRealClock(),
		intn:  rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Home 每日推荐字帖与朝代时间轴
func (s *LibraryService) Home(ctx context.Context) (HomePage, error) {
	daily, err := s.dailyRecommend(ctx)
	if err != nil {
		return HomePage{}, err
	}

	dynasties, err := s.repo.ListDynasties(ctx)
	if err != nil {
		return HomePage{}, err
	}
	return HomePage{DailyRecommend: daily, Dynasties: dynasties}, nil
}

func (s *LibraryService) dailyRecommend(ctx context.Context) (*model.Zitie, error) {
	now := s.clock.Now()
	if now.Month() == time.January && now.Day() == 1 {
		z, err := s.repo.FindZitieByTitle(ctx, NewYearMarker)
		switch {
		case err == nil:
			return &z, nil
		case !errors.Is(err, apperrors.ErrRecordNotFound):
			return nil, err
		}
		// 没有春节字帖时退回随机推荐
	}

	n, err := s.repo.CountZitie(ctx)
	if err != nil || n == 0 {
		return nil, err
	}

	z, err := s.repo.ZitieAt(ctx, s.intn(int(n)))
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		// 计数与取行之间有删除，不影响页面
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

// Dynasty 列出全部朝代；id 为合法数字时附带该朝代的古诗
func (s *LibraryService) Dynasty(ctx context.Context, id string) (DynastyPage, error) {
	id = strings.TrimSpace(id)
	dynasties, err := s.repo.ListDynasties(ctx)
	if err != nil {
		return DynastyPage{}, err
	}

	page := DynastyPage{Dynasties: dynasties, SelectedID: id}
	if n, ok := parseID(id); ok {
		page.PoetryList, err = s.repo.ListPoetryByDynasty(ctx, n)
		if err != nil {
			return DynastyPage{}, err
		}
	}
	return page, nil
}

// Copybooks 字帖库，dynastyID 为合法数字时按朝代过滤
func (s *LibraryService) Copybooks(ctx context.Context, dynastyID string) (CopybookPage, error) {
	dynastyID = strings.TrimSpace(dynastyID)
	dynasties, err := s.repo.ListDynasties(ctx)
	if err != nil {
		return CopybookPage{}, err
	}

	var filter *int64
	if n, ok := parseID(dynastyID); ok {
		filter = &n
	}
	list, err := s.repo.ListZitie(ctx, filter)
	if err != nil {
		return CopybookPage{}, err
	}
	return CopybookPage{Dynasties: dynasties, ZitieList: list, SelectedDynasty: dynastyID}, nil
}

// DefaultSearchType 请求未带 type 参数时按标题检索
const DefaultSearchType = string(dao.FieldTitle)

// Dictionary 书法字典检索；没有关键词时返回前 10 条，未知或为空的 type 不返回结果
func (s *LibraryService) Dictionary(ctx context.Context, searchType, keyword string) (DictionaryPage, error) {
	keyword = strings.TrimSpace(keyword)
	page := DictionaryPage{SearchType: searchType, Keyword: keyword}

	var err error
	if keyword == "" {
		page.Results, err = s.repo.LimitZitie(ctx, DictionaryDefaultLimit)
		return page, err
	}

	field, ok := searchField(searchType)
	if !ok {
		return page, nil
	}
	page.Results, err = s.repo.SearchZitie(ctx, field, keyword)
	return page, err
}

// searchField character 是旧表单里的取值，等同于 content
func searchField(searchType string) (dao.SearchField, bool) {
	switch searchType {
	case "title":
		return dao.FieldTitle, true
	case "author":
		return dao.FieldAuthor, true
	case "content", "character":
		return dao.FieldContent, true
	}
	return "", false
}

// parseID 只接受非空的纯 ASCII 数字
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
