package view

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// 页面模板名
const (
	PageLogin      = "login.html"
	PageRegister   = "register.html"
	PageForgetPwd  = "forget_pwd.html"
	PageIndex      = "index.html"
	PageDynasty    = "dynasty.html"
	PageZitie      = "zitie.html"
	PageDictionary = "dictionary.html"
	PageAI         = "ai.html"
	PageNotFound   = "404.html"
	PageError      = "500.html"
)

var funcs = template.FuncMap{
	"lines": func(s string) []string {
		return strings.Split(strings.TrimSpace(s), "\n")
	},
	"eqID": func(id int64, selected string) bool {
		return selected != "" && selected == strconv.FormatInt(id, 10)
	},
}

// Templates 解析全部页面，layout.html 提供公共头尾
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// Assets 页面脚本与样式，挂在 /assets 下
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
