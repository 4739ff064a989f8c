package ai

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"qingmo/pkg/common/clock"
	"qingmo/pkg/common/metrics"
	"qingmo/pkg/core/storage"
)

const (
	opRecognize  = "recognize_font_style"
	opScore      = "score_work"
	opInterpret  = "interpret_and_compose"
	opSynthesize = "synthesize_calligraphy_image"

	outcomeOK       = "ok"
	outcomeCoerced  = "coerced"
	outcomeDegraded = "degraded"
)

var scorePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*分`)

// Assessment 书法评分结果，Text 为模型原文
type Assessment struct {
	Style    string
	Text     string
	Score    float64
	HasScore bool
	Degraded bool
}

// Service 书法 AI 功能：识别、评分、看图作诗、生成书法图片。
// 每个操作独立容错，失败时返回兜底结果而不是错误，不做重试。
type Service struct {
	provider  Provider
	store     storage.Storage
	clock     clock.Clock
	imageSize string
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithImageSize(size string) Option {
	return func(s *Service) {
		if size != "" {
			s.imageSize = size
		}
	}
}

func NewService(provider Provider, store storage.Storage, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		store:     store,
		clock:     clock.NewRealClock(),
		imageSize: "1024x1024",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecognizeFontStyle 返回六种书体之一，无法识别时为楷书
func (s *Service) RecognizeFontStyle(ctx context.Context, image []byte) string {
	start := time.Now()

	reply, err := s.chat(ctx, image, recognizePrompt, recognizeParams)
	if err != nil {
		hlog.CtxErrorf(ctx, "[AI] 字体识别失败: %v", err)
		metrics.ObserveAI(opRecognize, outcomeDegraded, start)
		return DefaultStyle
	}

	style := strings.TrimSpace(reply)
	if !IsStyle(style) {
		hlog.CtxWarnf(ctx, "[AI] 字体识别结果不在已知书体中: %q，按%s处理", style, DefaultStyle)
		metrics.ObserveAI(opRecognize, outcomeCoerced, start)
		return DefaultStyle
	}

	metrics.ObserveAI(opRecognize, outcomeOK, start)
	return style
}

func (s *Service) ScoreWork(ctx context.Context, image []byte, style string) Assessment {
	start := time.Now()
	if style == "" {
		style = DefaultStyle
	}

	reply, err := s.chat(ctx, image, scorePrompt(style), scoreParams)
	if err != nil {
		hlog.CtxErrorf(ctx, "[AI] 书法评分失败: %v", err)
		metrics.ObserveAI(opScore, outcomeDegraded, start)
		return Assessment{
			Style:    style,
			Text:     scoreFallback(style, err),
			Score:    fallbackScore,
			HasScore: true,
			Degraded: true,
		}
	}

	text := strings.TrimSpace(reply)
	a := Assessment{Style: style, Text: text}
	a.Score, a.HasScore = ParseScore(text)

	metrics.ObserveAI(opScore, outcomeOK, start)
	return a
}

// ParseScore 取文本中第一个 0-10 之间的 “N.N分”
func ParseScore(text string) (float64, bool) {
	for _, m := range scorePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= 0 && v <= 10 {
			return v, true
		}
	}
	return 0, false
}

// InterpretAndCompose 第一行为图片主题，其余为古诗
func (s *Service) InterpretAndCompose(ctx context.Context, image []byte) (theme, poem string) {
	start := time.Now()

	reply, err := s.chat(ctx, image, interpretPrompt, interpretParams)
	if err != nil {
		hlog.CtxErrorf(ctx, "[AI] 古诗生成失败: %v", err)
		metrics.ObserveAI(opInterpret, outcomeDegraded, start)
		return FallbackTheme, FallbackPoem
	}

	theme, poem = SplitThemeAndPoem(reply)
	outcome := outcomeOK
	if poem == FallbackPoem {
		outcome = outcomeCoerced
	}
	metrics.ObserveAI(opInterpret, outcome, start)
	return theme, poem
}

// SplitThemeAndPoem 按第一个换行拆分，没有换行时使用兜底古诗
func SplitThemeAndPoem(reply string) (theme, poem string) {
	theme, rest, found := strings.Cut(strings.TrimSpace(reply), "\n")
	if !found {
		return theme, FallbackPoem
	}
	return theme, strings.TrimSpace(rest)
}

// SynthesizeCalligraphyImage 生成书法图片并保存，返回页面可用地址；任何失败返回空串
func (s *Service) SynthesizeCalligraphyImage(ctx context.Context, poem, style string) string {
	start := time.Now()
	if style == "" {
		style = DefaultStyle
	}

	url, err := s.synthesize(ctx, poem, style)
	if err != nil {
		hlog.CtxErrorf(ctx, "[AI] 书法图片生成失败: %v", err)
		metrics.ObserveAI(opSynthesize, outcomeDegraded, start)
		return ""
	}
	metrics.ObserveAI(opSynthesize, outcomeOK, start)
	return url
}

func (s *Service) synthesize(ctx context.Context, poem, style string) (string, error) {
	remote, err := s.provider.GenerateImage(ctx, imagePrompt(poem, style), s.imageSize)
	if err != nil {
		return "", err
	}
	data, err := s.provider.Download(ctx, remote)
	if err != nil {
		return "", err
	}
	name := "zhipu_font_" + storage.Timestamp(s.clock.Now()) + ".png"
	return s.store.Save(ctx, storage.CategoryGenerated, name, data)
}

func (s *Service) chat(ctx context.Context, image []byte, prompt string, p callParams) (string, error) {
	return s.provider.Chat(ctx, ChatRequest{
		Image:       image,
		Prompt:      prompt,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
}
