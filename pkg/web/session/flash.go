package session

import (
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	flashTTL = 5 * time.Minute
	// 当前请求内已写入的消息
	flashPendingKey = "flash_pending"
)

type flashClaims struct {
	Messages []string `json:"msgs"`
	gojwt.RegisteredClaims
}

// Flash 一次性提示消息，签名后存放在 Cookie 中，跨一次重定向
type Flash struct {
	key        []byte
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewFlash(secret, cookieName string, secure bool) *Flash {
	return &Flash{key: []byte(secret), cookieName: cookieName, secure: secure, now: time.Now}
}

// Add 在重定向前调用
func (f *Flash) Add(c *app.RequestContext, msgs ...string) {
	var pending []string
	if v, ok := c.Get(flashPendingKey); ok {
		pending, _ = v.([]string)
	}
	pending = append(pending, msgs...)
	c.Set(flashPendingKey, pending)

	now := f.now()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, flashClaims{
		Messages: pending,
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(flashTTL)),
		},
	})
	signed, err := token.SignedString(f.key)
	if err != nil {
		return
	}
	c.SetCookie(f.cookieName, signed, int(flashTTL.Seconds()), "/", "",
		protocol.CookieSameSiteLaxMode, f.secure, true)
}

// Pop 读取上一次请求留下的消息并清除，签名无效或过期时忽略
func (f *Flash) Pop(c *app.RequestContext) []string {
	raw := c.Cookie(f.cookieName)
	if len(raw) == 0 {
		return nil
	}
	c.SetCookie(f.cookieName, "", -1, "/", "", protocol.CookieSameSiteLaxMode, f.secure, true)

	var claims flashClaims
	_, err := gojwt.ParseWithClaims(string(raw), &claims, func(t *gojwt.Token) (interface{}, error) {
		return f.key, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(f.now),
	)
	if err != nil {
		return nil
	}
	return claims.Messages
}
