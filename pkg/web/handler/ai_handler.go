package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"qingmo/pkg/common/clock"
	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/common/metrics"
	"qingmo/pkg/core/ai"
	"qingmo/pkg/core/storage"
	"qingmo/pkg/web/model"
	"qingmo/pkg/web/view"
)

const (
	MsgNoFile = "请选择要上传的图片！"

	prefixScore  = "score"
	prefixPoetry = "poetry"
)

// AIHandler 书法评分与看图作诗，AI 调用同步完成后渲染结果
type AIHandler struct {
	*Pages
	ai     *ai.Service
	store  storage.Storage
	policy storage.Policy
	clock  clock.Clock
}

func NewAIHandler(pages *Pages, svc *ai.Service, store storage.Storage, policy storage.Policy, clk clock.Clock) *AIHandler {
	return &AIHandler{Pages: pages, ai: svc, store: store, policy: policy, clock: clk}
}

func (h *AIHandler) Page(ctx context.Context, c *app.RequestContext) {
	h.render(c, model.NewAIPage())
}

func (h *AIHandler) Submit(ctx context.Context, c *app.RequestContext) {
	page := model.NewAIPage()

	form, err := c.MultipartForm()
	if err != nil {
		h.reject(ctx, c, page, storage.ErrNoFile)
		return
	}

	switch {
	case hasFile(form, model.FieldScoreImage):
		h.score(ctx, c, form.File[model.FieldScoreImage][0], &page)
	case hasFile(form, model.FieldPoetryImage):
		var selected string
		if v := form.Value[model.FieldFontType]; len(v) > 0 {
			selected = v[0]
		}
		h.poetry(ctx, c, form.File[model.FieldPoetryImage][0], model.SelectedStyle(selected), &page)
	default:
		h.reject(ctx, c, page, storage.ErrNoFile)
	}
}

// score 识别字体后评分
func (h *AIHandler) score(ctx context.Context, c *app.RequestContext, fh *multipart.FileHeader, page *model.AIPage) {
	data, url, err := h.accept(ctx, c, fh, prefixScore)
	if err != nil {
		h.reject(ctx, c, *page, err)
		return
	}

	style := h.ai.RecognizeFontStyle(ctx, data)
	assessment := h.ai.ScoreWork(ctx, data, style)

	page.ScoreImgPath = url
	page.FontType = style
	page.ScoreResult = assessment.Text
	page.Score = assessment.Score
	page.HasScore = assessment.HasScore
	h.render(c, *page)
}

// poetry 解读图片、作诗并生成书法图片
func (h *AIHandler) poetry(ctx context.Context, c *app.RequestContext, fh *multipart.FileHeader, style string, page *model.AIPage) {
	page.SelectedFont = style

	data, url, err := h.accept(ctx, c, fh, prefixPoetry)
	if err != nil {
		h.reject(ctx, c, *page, err)
		return
	}

	theme, poem := h.ai.InterpretAndCompose(ctx, data)

	page.PoetryImgPath = url
	page.ImgInterpretation = theme
	page.PoetryResult = poem
	page.FontImageURL = h.ai.SynthesizeCalligraphyImage(ctx, poem, style)
	h.render(c, *page)
}

// accept 校验并保存上传文件，返回文件内容与访问地址
func (h *AIHandler) accept(ctx context.Context, c *app.RequestContext, fh *multipart.FileHeader, prefix string) ([]byte, string, error) {
	if err := h.policy.Check(fh.Filename, int64(c.Request.Header.ContentLength())); err != nil {
		return nil, "", err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if h.policy.MaxBytes > 0 && int64(len(data)) > h.policy.MaxBytes {
		return nil, "", storage.ErrTooLarge
	}

	name := storage.UniqueName(prefix, fh.Filename, h.clock.Now())
	url, err := h.store.Save(ctx, storage.CategoryUpload, name, data)
	if err != nil {
		return nil, "", fmt.Errorf("save upload: %w", err)
	}
	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	hlog.CtxInfof(ctx, "[UPLOAD] %s -> %s (%d bytes)", fh.Filename, url, len(data))
	return data, url, nil
}

// reject 校验失败时提示后重新展示页面；存储故障返回 500
func (h *AIHandler) reject(ctx context.Context, c *app.RequestContext, page model.AIPage, err error) {
	var msg string
	switch {
	case errors.Is(err, storage.ErrNoFile):
		msg = MsgNoFile
	case errors.Is(err, storage.ErrExtNotAllowed):
		msg = fmt.Sprintf("仅支持 %s 格式的图片！", strings.Join(h.policy.Extensions(), "/"))
	case errors.Is(err, storage.ErrTooLarge):
		msg = fmt.Sprintf("图片大小不能超过%dMB！", h.policy.MaxBytes>>20)
	default:
		h.Fail(ctx, c, err)
		return
	}
	metrics.UploadsTotal.WithLabelValues("rejected").Inc()
	_ = c.Error(apperrors.Public(err))
	h.render(c, page, msg)
}

func (h *AIHandler) render(c *app.RequestContext, page model.AIPage, msgs ...string) {
	h.Render(c, http.StatusOK, view.PageAI, utils.H{"Title": "AI 书法", "AI": page}, msgs...)
}

func hasFile(form *multipart.Form, field string) bool {
	return len(form.File[field]) > 0
}
