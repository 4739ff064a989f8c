package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"qingmo/pkg/core/library/service"
	"qingmo/pkg/web/view"
)

// ContentHandler 首页、朝代、字帖库、书法字典
type ContentHandler struct {
	*Pages
	library *service.LibraryService
}

func NewContentHandler(pages *Pages, library *service.LibraryService) *ContentHandler {
	return &ContentHandler{Pages: pages, library: library}
}

func (h *ContentHandler) Index(ctx context.Context, c *app.RequestContext) {
	page, err := h.library.Home(ctx)
	if err != nil {
		h.Fail(ctx, c, err)
		return
	}
	h.Render(c, http.StatusOK, view.PageIndex, utils.H{
		"Title":          "首页",
		"DailyRecommend": page.DailyRecommend,
		"Dynasties":      page.Dynasties,
	})
}

func (h *ContentHandler) Dynasty(ctx context.Context, c *app.RequestContext) {
	page, err := h.library.Dynasty(ctx, c.Query("id"))
	if err != nil {
		h.Fail(ctx, c, err)
		return
	}
	h.Render(c, http.StatusOK, view.PageDynasty, utils.H{
		"Title":      "朝代查询",
		"Dynasties":  page.Dynasties,
		"PoetryList": page.PoetryList,
		"SelectedID": page.SelectedID,
	})
}

func (h *ContentHandler) Zitie(ctx context.Context, c *app.RequestContext) {
	page, err := h.library.Copybooks(ctx, c.Query("dynasty_id"))
	if err != nil {
		h.Fail(ctx, c, err)
		return
	}
	h.Render(c, http.StatusOK, view.PageZitie, utils.H{
		"Title":           "字帖库",
		"Dynasties":       page.Dynasties,
		"ZitieList":       page.ZitieList,
		"SelectedDynasty": page.SelectedDynasty,
	})
}

func (h *ContentHandler) Dictionary(ctx context.Context, c *app.RequestContext) {
	// 只有缺省 type 参数时才按标题检索
	page, err := h.library.Dictionary(ctx, c.DefaultQuery("type", service.DefaultSearchType), c.Query("keyword"))
	if err != nil {
		h.Fail(ctx, c, err)
		return
	}
	h.Render(c, http.StatusOK, view.PageDictionary, utils.H{
		"Title":      "书法字典",
		"Results":    page.Results,
		"SearchType": page.SearchType,
		"Keyword":    page.Keyword,
	})
}
