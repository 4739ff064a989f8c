package model

import (
	"strings"

	"qingmo/pkg/core/ai"
)

// 上传表单字段
const (
	FieldScoreImage  = "score_img"
	FieldPoetryImage = "poetry_img"
	FieldFontType    = "font_type"
)

// AIPage ai 页面展示的全部状态
type AIPage struct {
	ScoreResult       string
	Score             float64
	HasScore          bool
	ScoreImgPath      string
	FontType          string
	PoetryResult      string
	PoetryImgPath     string
	FontImageURL      string
	SelectedFont      string
	ImgInterpretation string
	Styles            []string
}

func NewAIPage() AIPage {
	return AIPage{Styles: ai.Styles}
}

// SelectedStyle 未选择时为楷书，其余原样使用
func SelectedStyle(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return ai.DefaultStyle
	}
	return v
}
