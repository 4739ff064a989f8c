package handler

import (
	"context"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
)

// Assets 从内嵌文件系统提供 /assets/*filepath
func (p *Pages) Assets(fsys fs.FS) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		name := strings.TrimPrefix(c.Param("filepath"), "/")
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			p.NotFound(ctx, c)
			return
		}
		ct := mime.TypeByExtension(path.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, ct, data)
	}
}
