package ai

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"qingmo/pkg/common/config"
)

var (
	ErrMissingAPIKey = errors.New("ai api key is not configured")
	ErrEmptyResponse = errors.New("ai provider returned an empty response")
)

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai provider error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// ChatRequest 一次图文对话：一张图片 + 一段提示词
type ChatRequest struct {
	Image       []byte
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Provider 外部 AI 服务
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Client 智谱开放平台 HTTP 客户端（OpenAI 兼容格式）
type Client struct {
	hc              *client.Client
	baseURL         string
	apiKey          string
	chatModel       string
	imageModel      string
	downloadTimeout time.Duration
}

func NewClient(cfg config.AIConfig) (*Client, error) {
	hc, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithDialTimeout(cfg.DialTimeout),
		client.WithTLSConfig(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // 由配置显式开启
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ai http client: %w", err)
	}
	return &Client{
		hc:              hc,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		chatModel:       cfg.ChatModel,
		imageModel:      cfg.ImageModel,
		downloadTimeout: cfg.DownloadTimeout,
	}, nil
}

func (c *Client) Configured() bool { return c.apiKey != "" }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat 返回 choices[0].message.content
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	body := chatCompletionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(req.Image)}},
				{Type: "text", Text: req.Prompt},
			},
		}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var out chatCompletionResponse
	if err := c.postJSON(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateImage 返回生成图片的临时地址 data[0].url
func (c *Client) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	var out imageGenerationResponse
	err := c.postJSON(ctx, "/images/generations", imageGenerationRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		Size:   size,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", ErrEmptyResponse
	}
	return out.Data[0].URL, nil
}

// Download 唯一带超时的调用
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(url)

	var err error
	if c.downloadTimeout > 0 {
		err = c.hc.DoTimeout(ctx, req, resp, c.downloadTimeout)
	} else {
		err = c.hc.Do(ctx, req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, &APIError{Status: status, Message: "download failed"}
	}

	data := append([]byte(nil), resp.Body()...)
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}
	return data, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	payload, err := sonic.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.SetHeader(consts.HeaderAuthorization, "Bearer "+c.apiKey)
	req.SetBody(payload)

	if err := c.hc.Do(ctx, req, resp); err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status, Message: string(resp.Body())}
		var er errorResponse
		if sonic.Unmarshal(resp.Body(), &er) == nil && er.Error.Message != "" {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Error.Message
		}
		return apiErr
	}

	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// dataURL 与网页端一致，统一按 jpeg 声明
func dataURL(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}
