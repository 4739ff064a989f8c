package router_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qingmo/pkg/common/clock"
	"qingmo/pkg/common/config"
	"qingmo/pkg/core/ai"
	libmodel "qingmo/pkg/core/library/model"
	libdao "qingmo/pkg/core/library/repository/dao/impl"
	library "qingmo/pkg/core/library/service"
	"qingmo/pkg/core/storage"
	usermodel "qingmo/pkg/core/user/model"
	userdao "qingmo/pkg/core/user/repository/dao/impl"
	user "qingmo/pkg/core/user/service"
	"qingmo/pkg/web/router"
	"qingmo/pkg/web/session"
)

type stubProvider struct{}

func (stubProvider) Chat(_ context.Context, req ai.ChatRequest) (string, error) {
	if strings.Contains(req.Prompt, "识别") {
		return "行书", nil
	}
	if strings.Contains(req.Prompt, "评委") {
		return "字体识别结果：行书\n评分：8.6分\n笔画：起笔稍重", nil
	}
	return "江南春色\n细雨润青石，\n春风过柳堤。", nil
}

func (stubProvider) GenerateImage(context.Context, string, string) (string, error) {
	return "https://provider/img.png", nil
}

func (stubProvider) Download(context.Context, string) ([]byte, error) {
	return []byte("PNG"), nil
}

type testApp struct {
	h    *server.Hertz
	db   *gorm.DB
	root string
}

func newTestApp(t *testing.T, tweaks ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.StaticRoot = filepath.Join(t.TempDir(), "static")
	for _, tweak := range tweaks {
		tweak(&cfg)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, usermodel.AutoMigrate(db))
	require.NoError(t, libmodel.AutoMigrate(db))
	require.NoError(t, libdao.Seed(context.Background(), db))

	store, err := storage.NewLocal(cfg.Storage.StaticRoot, cfg.Storage.URLPrefix, storage.Layout{
		UploadDir:    cfg.Storage.UploadDir,
		GeneratedDir: cfg.Storage.GeneratedDir,
	})
	require.NoError(t, err)

	users := user.NewUserService(userdao.NewGormUserRepository(db), user.WithHashCost(bcrypt.MinCost))
	sessions, err := session.New(cfg.Session, session.WithLookup(router.SessionLookup(users)))
	require.NoError(t, err)

	clk := clock.NewMockClock(time.Date(2026, 3, 5, 9, 0, 0, 0, time.Local))
	h := server.New()
	require.NoError(t, router.RegisterAPIs(h, router.Deps{
		Config:    &cfg,
		DB:        db,
		Users:     users,
		Library:   library.NewLibraryService(libdao.NewGormLibraryRepository(db), library.WithClock(clk)),
		AI:        ai.NewService(stubProvider{}, store, ai.WithClock(clk)),
		AIReady:   func() bool { return true },
		Store:     store,
		Sessions:  sessions,
		Flash:     session.NewFlash(cfg.Session.Secret, cfg.Session.FlashCookieName, false),
		Clock:     clk,
		LocalRoot: cfg.Storage.StaticRoot,
	}))
	return &testApp{h: h, db: db, root: cfg.Storage.StaticRoot}
}

func (a *testApp) do(method, target string, body []byte, headers ...ut.Header) *protocol.Response {
	var b *ut.Body
	if body != nil {
		b = &ut.Body{Body: bytes.NewReader(body), Len: len(body)}
	}
	return ut.PerformRequest(a.h.Engine, method, target, b, headers...).Result()
}

func (a *testApp) postForm(target, form string, headers ...ut.Header) *protocol.Response {
	headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/x-www-form-urlencoded"})
	return a.do(http.MethodPost, target, []byte(form), headers...)
}

func cookie(resp *protocol.Response, name string) string {
	var val string
	resp.Header.VisitAllCookie(func(key, value []byte) {
		if string(key) != name {
			return
		}
		ck := protocol.AcquireCookie()
		defer protocol.ReleaseCookie(ck)
		if ck.ParseBytes(value) == nil {
			val = string(ck.Value())
		}
	})
	return val
}

func location(resp *protocol.Response) string {
	return string(resp.Header.Peek("Location"))
}

// login 注册并登录，返回带会话的 Cookie 头
func (a *testApp) login(t *testing.T) ut.Header {
	t.Helper()
	resp := a.postForm("/register", "username=wang&password=123456&confirm_pwd=123456")
	require.Equal(t, http.StatusFound, resp.StatusCode())

	resp = a.postForm("/login", "username=wang&password=123456")
	require.Equal(t, http.StatusFound, resp.StatusCode())
	token := cookie(resp, "qingmo_session")
	require.NotEmpty(t, token)
	return ut.Header{Key: "Cookie", Value: "qingmo_session=" + token}
}

func TestHealthCheckRoute(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"database"`)
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/dynasty?id=1", "/zitie", "/dictionary", "/ai"} {
		resp := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode(), path)
		assert.True(t, strings.HasSuffix(location(resp), "/login"), path)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	resp := app.postForm("/register", "username=wang&password=1&confirm_pwd=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "两次密码输入不一致！")

	resp = app.postForm("/register", "username=wang&password=123456&confirm_pwd=123456")
	require.Equal(t, http.StatusFound, resp.StatusCode())
	assert.True(t, strings.HasSuffix(location(resp), "/login"))

	// 跳转后的登录页展示提示
	flash := cookie(resp, "qingmo_flash")
	require.NotEmpty(t, flash)
	resp = app.do(http.MethodGet, "/login", nil, ut.Header{Key: "Cookie", Value: "qingmo_flash=" + flash})
	assert.Contains(t, string(resp.Body()), "注册成功！请登录")

	resp = app.postForm("/register", "username=wang&password=abc&confirm_pwd=abc")
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "用户名已存在！")

	resp = app.postForm("/login", "username=wang&password=wrong")
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "用户名或密码错误！")
	assert.Empty(t, cookie(resp, "qingmo_session"))

	resp = app.postForm("/login", "username=&password=")
	assert.Contains(t, string(resp.Body()), "用户名和密码不能为空！")

	resp = app.postForm("/login", "username=wang&password=123456")
	require.Equal(t, http.StatusFound, resp.StatusCode())
	auth := ut.Header{Key: "Cookie", Value: "qingmo_session=" + cookie(resp, "qingmo_session")}

	resp = app.do(http.MethodGet, "/", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	body := string(resp.Body())
	assert.Contains(t, body, "每日推荐")
	assert.Contains(t, body, "wang")

	resp = app.do(http.MethodGet, "/logout", nil, auth)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.Empty(t, cookie(resp, "qingmo_session"))
}

func TestDeletedUserSessionRevoked(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	resp := app.do(http.MethodGet, "/", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	require.NoError(t, app.db.Where("username = ?", "wang").Delete(&usermodel.User{}).Error)
	resp = app.do(http.MethodGet, "/", nil, auth)
	assert.Equal(t, http.StatusFound, resp.StatusCode())
	assert.True(t, strings.HasSuffix(location(resp), "/login"))
}

func TestForgetPassword(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	resp := app.postForm("/forget_pwd", "username=nobody&new_pwd=x")
	assert.Contains(t, string(resp.Body()), "用户名不存在！")

	resp = app.postForm("/forget_pwd", "username=wang&new_pwd=")
	assert.Contains(t, string(resp.Body()), "用户名和新密码不能为空！")

	resp = app.postForm("/forget_pwd", "username=wang&new_pwd=654321")
	require.Equal(t, http.StatusFound, resp.StatusCode())

	resp = app.postForm("/login", "username=wang&password=123456")
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	resp = app.postForm("/login", "username=wang&password=654321")
	assert.Equal(t, http.StatusFound, resp.StatusCode())
}

func TestLongMultibytePassword(t *testing.T) {
	app := newTestApp(t)
	// 30 个汉字共 90 字节，超出 bcrypt 上限
	long := url.QueryEscape(strings.Repeat("墨", 30))

	resp := app.postForm("/register", "username=li&password="+long+"&confirm_pwd="+long)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "用户名或密码过长！")

	app.login(t)
	resp = app.postForm("/forget_pwd", "username=wang&new_pwd="+long)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "用户名或密码过长！")

	resp = app.postForm("/login", "username=wang&password=123456")
	assert.Equal(t, http.StatusFound, resp.StatusCode())
}

func TestRateLimiterStoppedOnShutdown(t *testing.T) {
	app := newTestApp(t)
	assert.Empty(t, app.h.OnShutdown)

	app = newTestApp(t, func(cfg *config.Config) {
		cfg.Middleware.RateLimit = config.RateLimitConfig{Rate: 1, Interval: time.Hour}
	})
	require.Len(t, app.h.OnShutdown, 1)

	resp := app.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	resp = app.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())

	assert.NotPanics(t, func() {
		app.h.OnShutdown[0](context.Background())
		app.h.OnShutdown[0](context.Background())
	})
}

func TestContentPages(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	resp := app.do(http.MethodGet, "/dynasty", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "请选择朝代")

	resp = app.do(http.MethodGet, "/dynasty?id=abc", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "该朝代暂无古诗")

	resp = app.do(http.MethodGet, "/zitie", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "兰亭集序")

	resp = app.do(http.MethodGet, "/dictionary?type=author&keyword=%E9%A2%9C%E7%9C%9F%E5%8D%BF", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	body := string(resp.Body())
	assert.Contains(t, body, "多宝塔碑")
	assert.NotContains(t, body, "兰亭集序")

	resp = app.do(http.MethodGet, "/dictionary?type=unknown&keyword=%E5%A1%94", nil, auth)
	assert.Contains(t, string(resp.Body()), "没有找到相关字帖")

	// 缺省 type 按标题检索，显式空 type 不返回结果
	resp = app.do(http.MethodGet, "/dictionary?keyword=%E5%85%B0%E4%BA%AD", nil, auth)
	assert.Contains(t, string(resp.Body()), "兰亭集序")
	resp = app.do(http.MethodGet, "/dictionary?type=&keyword=%E5%85%B0%E4%BA%AD", nil, auth)
	assert.Contains(t, string(resp.Body()), "没有找到相关字帖")
}

func multipartBody(t *testing.T, field, filename string, data []byte, values map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestAIUploadScore(t *testing.T) {
	var logs bytes.Buffer
	hlog.SetOutput(&logs)
	t.Cleanup(func() { hlog.SetOutput(os.Stderr) })

	app := newTestApp(t)
	auth := app.login(t)

	body, ct := multipartBody(t, "score_img", "work.exe", []byte("x"), nil)
	resp := app.do(http.MethodPost, "/ai", body, auth, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "仅支持 gif/jpeg/jpg/png 格式的图片！")
	// 上传校验失败作为公开错误记录在访问日志中
	assert.Contains(t, logs.String(), "rejected: ")

	body, ct = multipartBody(t, "score_img", "work.PNG", []byte("PNGDATA"), nil)
	resp = app.do(http.MethodPost, "/ai", body, auth, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	page := string(resp.Body())
	assert.Contains(t, page, "评分：8.6分")
	assert.Contains(t, page, "<strong>行书</strong>")
	assert.Contains(t, page, "/static/img/upload/score_20260305090000_000000_")

	entries, err := os.ReadDir(filepath.Join(app.root, "img", "upload"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_work.PNG"))

	// 上传的文件可以通过静态路由访问
	resp = app.do(http.MethodGet, "/static/img/upload/"+entries[0].Name(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "PNGDATA", string(resp.Body()))
}

func TestAIUploadPoetry(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	body, ct := multipartBody(t, "poetry_img", "river.jpg", []byte("JPG"), map[string]string{"font_type": "隶书"})
	resp := app.do(http.MethodPost, "/ai", body, auth, ut.Header{Key: "Content-Type", Value: ct})
	require.Equal(t, http.StatusOK, resp.StatusCode())
	page := string(resp.Body())
	assert.Contains(t, page, "图片主题：江南春色")
	assert.Contains(t, page, "<p>细雨润青石，</p>")
	assert.Contains(t, page, "/static/img/generated_font/zhipu_font_20260305090000_000000.png")

	_, err := os.Stat(filepath.Join(app.root, "img", "generated_font", "zhipu_font_20260305090000_000000.png"))
	require.NoError(t, err)
}

func TestAssetsAndNotFound(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(http.MethodGet, "/assets/js/main.js", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "tab-btn")

	resp = app.do(http.MethodGet, "/no/such/page", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "页面不存在")
}
