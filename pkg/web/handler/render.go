package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	apperrors "qingmo/pkg/common/errors"
	"qingmo/pkg/web/session"
	"qingmo/pkg/web/view"
)

// Pages 页面渲染公共部分：登录用户与一次性提示
type Pages struct {
	flash *session.Flash
}

func NewPages(flash *session.Flash) *Pages {
	return &Pages{flash: flash}
}

// Render msgs 为本次请求直接展示的提示，排在上次重定向留下的提示之后
func (p *Pages) Render(c *app.RequestContext, status int, name string, data utils.H, msgs ...string) {
	if data == nil {
		data = utils.H{}
	}
	data["Messages"] = append(p.flash.Pop(c), msgs...)
	if id, ok := session.Current(c); ok {
		data["Username"] = id.Username
	}
	c.HTML(status, name, data)
}

// Redirect 带提示跳转
func (p *Pages) Redirect(c *app.RequestContext, location string, msgs ...string) {
	if len(msgs) > 0 {
		p.flash.Add(c, msgs...)
	}
	c.Redirect(http.StatusFound, []byte(location))
}

// Fail 记录错误并返回 500 页面
func (p *Pages) Fail(ctx context.Context, c *app.RequestContext, err error) {
	hlog.CtxErrorf(ctx, "[PAGE] %s %s: %v", c.Method(), c.Path(), err)
	_ = c.Error(apperrors.Private(err, string(c.Path())))
	p.Render(c, http.StatusInternalServerError, view.PageError, utils.H{"Title": "出错了"})
}

// NotFound 未匹配的路由
func (p *Pages) NotFound(ctx context.Context, c *app.RequestContext) {
	p.Render(c, http.StatusNotFound, view.PageNotFound, utils.H{"Title": "页面不存在"})
}
