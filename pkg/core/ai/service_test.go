package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qingmo/pkg/common/clock"
	"qingmo/pkg/core/storage"
)

type fakeProvider struct {
	reply    string
	chatErr  error
	imageURL string
	imageErr error
	data     []byte
	dlErr    error

	chats   []ChatRequest
	prompts []string
	sizes   []string
}

func (f *fakeProvider) Chat(_ context.Context, req ChatRequest) (string, error) {
	f.chats = append(f.chats, req)
	return f.reply, f.chatErr
}

func (f *fakeProvider) GenerateImage(_ context.Context, prompt, size string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.sizes = append(f.sizes, size)
	return f.imageURL, f.imageErr
}

func (f *fakeProvider) Download(_ context.Context, url string) ([]byte, error) {
	return f.data, f.dlErr
}

type memStorage struct {
	saved map[string][]byte
	err   error
}

func (m *memStorage) Save(_ context.Context, c storage.Category, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[string(c)+"/"+name] = data
	return "/static/" + string(c) + "/" + name, nil
}

func TestRecognizeFontStyle(t *testing.T) {
	ctx := context.Background()
	img := []byte("img")

	cases := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{"known label", "行书", nil, StyleRunning},
		{"trimmed", "  瘦金体\n", nil, StyleThinGold},
		{"unknown label", "魏碑", nil, DefaultStyle},
		{"sentence", "这是行书", nil, DefaultStyle},
		{"error", "", errors.New("timeout"), DefaultStyle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{reply: tc.reply, chatErr: tc.err}
			s := NewService(p, &memStorage{})
			assert.Equal(t, tc.want, s.RecognizeFontStyle(ctx, img))

			require.Len(t, p.chats, 1)
			assert.Equal(t, img, p.chats[0].Image)
			assert.InDelta(t, 0.1, p.chats[0].Temperature, 1e-9)
			assert.Equal(t, 20, p.chats[0].MaxTokens)
		})
	}
}

func TestScoreWork(t *testing.T) {
	p := &fakeProvider{reply: "字体识别结果：隶书\n评分：7.5分\n笔画：……\n结构：……\n章法：……\n"}
	s := NewService(p, &memStorage{})

	a := s.ScoreWork(context.Background(), []byte("img"), StyleClerical)
	assert.Equal(t, StyleClerical, a.Style)
	assert.False(t, a.Degraded)
	assert.True(t, a.HasScore)
	assert.InDelta(t, 7.5, a.Score, 1e-9)
	assert.True(t, strings.HasSuffix(a.Text, "章法：……"))

	require.Len(t, p.chats, 1)
	assert.Contains(t, p.chats[0].Prompt, "你是专业的隶书书法评委")
	assert.InDelta(t, 0.3, p.chats[0].Temperature, 1e-9)
	assert.Equal(t, 500, p.chats[0].MaxTokens)
}

func TestScoreWork_Fallback(t *testing.T) {
	p := &fakeProvider{chatErr: errors.New("connection reset")}
	s := NewService(p, &memStorage{})

	a := s.ScoreWork(context.Background(), []byte("img"), StyleCursive)
	assert.True(t, a.Degraded)
	assert.True(t, a.HasScore)
	assert.InDelta(t, 8.0, a.Score, 1e-9)
	assert.True(t, strings.HasPrefix(a.Text, "AI评分失败：connection reset\n\n字体识别结果：草书"))
	assert.Contains(t, a.Text, "默认评分：8.0分")
	assert.Contains(t, a.Text, "1. 练习草书基本笔画")
}

func TestParseScore(t *testing.T) {
	v, ok := ParseScore("打分：9.2 分")
	assert.True(t, ok)
	assert.InDelta(t, 9.2, v, 1e-9)

	v, ok = ParseScore("满分100分，本作品 8分")
	assert.True(t, ok)
	assert.InDelta(t, 8, v, 1e-9)

	_, ok = ParseScore("没有分数")
	assert.False(t, ok)
}

func TestInterpretAndCompose(t *testing.T) {
	p := &fakeProvider{reply: "  山间明月与松林\n明月松间照，\n清泉石上流。\n"}
	s := NewService(p, &memStorage{})

	theme, poem := s.InterpretAndCompose(context.Background(), []byte("img"))
	assert.Equal(t, "山间明月与松林", theme)
	assert.Equal(t, "明月松间照，\n清泉石上流。", poem)
	assert.InDelta(t, 0.8, p.chats[0].Temperature, 1e-9)
	assert.Equal(t, 300, p.chats[0].MaxTokens)
}

func TestInterpretAndCompose_Fallbacks(t *testing.T) {
	s := NewService(&fakeProvider{reply: "只有一行主题"}, &memStorage{})
	theme, poem := s.InterpretAndCompose(context.Background(), nil)
	assert.Equal(t, "只有一行主题", theme)
	assert.Equal(t, FallbackPoem, poem)

	s = NewService(&fakeProvider{chatErr: errors.New("boom")}, &memStorage{})
	theme, poem = s.InterpretAndCompose(context.Background(), nil)
	assert.Equal(t, FallbackTheme, theme)
	assert.Equal(t, FallbackPoem, poem)
}

func TestSynthesizeCalligraphyImage(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 42000, time.Local)
	p := &fakeProvider{imageURL: "https://cdn/x.png", data: []byte("PNG")}
	store := &memStorage{}
	s := NewService(p, store, WithClock(clock.NewMockClock(now)), WithImageSize("768x768"))

	url := s.SynthesizeCalligraphyImage(context.Background(), "明月松间照", "")
	assert.Equal(t, "/static/generated/zhipu_font_20261019153000_000042.png", url)
	assert.Equal(t, []byte("PNG"), store.saved["generated/zhipu_font_20261019153000_000042.png"])

	require.Len(t, p.prompts, 1)
	assert.True(t, strings.HasPrefix(p.prompts[0], "将以下古诗以楷书书法风格书写在米黄色宣纸上：\n明月松间照\n要求："))
	assert.Equal(t, []string{"768x768"}, p.sizes)
}

func TestSynthesizeCalligraphyImage_Failures(t *testing.T) {
	ctx := context.Background()

	s := NewService(&fakeProvider{imageErr: errors.New("quota")}, &memStorage{})
	assert.Empty(t, s.SynthesizeCalligraphyImage(ctx, "诗", StyleSeal))

	s = NewService(&fakeProvider{imageURL: "u", dlErr: errors.New("timeout")}, &memStorage{})
	assert.Empty(t, s.SynthesizeCalligraphyImage(ctx, "诗", StyleSeal))

	s = NewService(&fakeProvider{imageURL: "u", data: []byte("x")}, &memStorage{err: errors.New("disk full")})
	assert.Empty(t, s.SynthesizeCalligraphyImage(ctx, "诗", StyleSeal))
}
