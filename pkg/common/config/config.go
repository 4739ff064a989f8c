package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type SecurityConfig struct {
	MaxBodySize    int64    `mapstructure:"max_body_size"` // 单位：字节，超过直接 413
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

type CORSConfig struct {
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
	TrustedDomains   []string      `mapstructure:"trusted_domains"`
}

// RateLimitConfig Rate<=0 表示关闭限流
type RateLimitConfig struct {
	Rate     int           `mapstructure:"rate"`
	Interval time.Duration `mapstructure:"interval"`
}

type MiddlewareConfig struct {
	Security  SecurityConfig  `mapstructure:"security"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// 数据库配置
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`        // mysql 或 sqlite
	Host        string `mapstructure:"host"`          // 数据库主机地址
	Port        int    `mapstructure:"port"`          // 数据库端口
	Username    string `mapstructure:"username"`      // 数据库用户名
	Password    string `mapstructure:"password"`      // 数据库密码
	DBName      string `mapstructure:"dbname"`        // 数据库名称
	UseUnixSock bool   `mapstructure:"use_unix_sock"` // 是否使用Unix套接字连接
	SQLitePath  string `mapstructure:"sqlite_path"`   // sqlite 文件路径
	MinPoolSize int    `mapstructure:"min_pool_size"` // 连接池最小连接数
	MaxPoolSize int    `mapstructure:"max_pool_size"` // 连接池最大连接数
	LogLevel    string `mapstructure:"log_level"`     // GORM日志级别
	Seed        bool   `mapstructure:"seed"`          // 空库时写入示例数据
}

type SessionConfig struct {
	Secret          string        `mapstructure:"secret"`
	Realm           string        `mapstructure:"realm"`
	CookieName      string        `mapstructure:"cookie_name"`
	FlashCookieName string        `mapstructure:"flash_cookie_name"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	Secure          bool          `mapstructure:"secure"`
}

// AIConfig 智谱开放平台
type AIConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	APIKey             string        `mapstructure:"api_key"`
	ChatModel          string        `mapstructure:"chat_model"`  // 图文理解模型
	ImageModel         string        `mapstructure:"image_model"` // 文生图模型
	ImageSize          string        `mapstructure:"image_size"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	DownloadTimeout    time.Duration `mapstructure:"download_timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

type UploadConfig struct {
	MaxBytes    int64    `mapstructure:"max_bytes"`
	AllowedExts []string `mapstructure:"allowed_exts"`
}

type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	BaseEndpoint  string `mapstructure:"base_endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
}

// RetentionConfig MaxAge 为 0 时不清理
type RetentionConfig struct {
	Schedule string        `mapstructure:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

type StorageConfig struct {
	Backend      string          `mapstructure:"backend"` // local 或 s3
	StaticRoot   string          `mapstructure:"static_root"`
	URLPrefix    string          `mapstructure:"url_prefix"`
	UploadDir    string          `mapstructure:"upload_dir"`
	GeneratedDir string          `mapstructure:"generated_dir"`
	S3           S3Config        `mapstructure:"s3"`
	Retention    RetentionConfig `mapstructure:"retention"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"` // 为空时只输出到 stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"` // 为空时不启动
	Path    string `mapstructure:"path"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	AI         AIConfig         `mapstructure:"ai"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Env        string           `mapstructure:"env"` // 环境标识
}

// Default 返回默认配置，每次调用都是独立副本
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address: ":5000",
		},
		Database: DatabaseConfig{
			Driver:      "mysql",
			Host:        "127.0.0.1",
			Port:        3306,
			Username:    "root",
			Password:    "123456",
			DBName:      "qingmo_db",
			SQLitePath:  "qingmo.db",
			MinPoolSize: 5,
			MaxPoolSize: 50,
			LogLevel:    "warn",
		},
		Session: SessionConfig{
			Secret:          "qingmo-dev-secret-change-me",
			Realm:           "qingmo",
			CookieName:      "qingmo_session",
			FlashCookieName: "qingmo_flash",
			MaxAge:          24 * time.Hour,
		},
		AI: AIConfig{
			BaseURL:         "https://open.bigmodel.cn/api/paas/v4",
			ChatModel:       "glm-4v-plus",
			ImageModel:      "cogview-4-250304",
			ImageSize:       "1024x1024",
			DialTimeout:     10 * time.Second,
			DownloadTimeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes:    10 << 20, // 10MB
			AllowedExts: []string{"png", "jpg", "jpeg", "gif"},
		},
		Storage: StorageConfig{
			Backend:      "local",
			StaticRoot:   "static",
			URLPrefix:    "/static",
			UploadDir:    "img/upload",
			GeneratedDir: "img/generated_font",
			S3: S3Config{
				Region:       "us-east-1",
				UsePathStyle: true,
			},
			Retention: RetentionConfig{
				Schedule: "0 30 3 * * *",
			},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Middleware: MiddlewareConfig{
			Security: SecurityConfig{
				MaxBodySize:    20 << 20, // 上传上限的两倍，留给业务层提示
				AllowedMethods: []string{"GET", "POST", "HEAD"},
			},
			CORS: CORSConfig{
				AllowOrigins:     []string{"http://localhost:5000"},
				AllowMethods:     []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
				ExposeHeaders:    []string{"Content-Length"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			},
			RateLimit: RateLimitConfig{
				Rate:     0,
				Interval: time.Second,
			},
		},
		Env: "development",
	}
}

// IsProd 判断当前是否生产环境
func (c *Config) IsProd() bool {
	return c.Env == "production"
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load() *Config {
	cfg, err := LoadFile(getConfigPath())
	if err != nil {
		hlog.Warnf("Failed to load config file: %v", err)
	}
	return cfg
}

// LoadFile 与 Load 相同，但使用指定的配置文件；path 为空时只用默认值和环境变量。
// 读取文件失败时仍返回可用配置。
func LoadFile(path string) (*Config, error) {
	config := Default()

	v := viper.New()
	setDefaults(v, &config)
	v.SetEnvPrefix("QINGMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var fileErr error
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fileErr = fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return &config, fmt.Errorf("decode config: %w", err)
	}

	// 兼容旧的环境变量名
	loadFromEnv(&config)

	return &config, fileErr
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用环境变量指定的配置文件路径
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}

	// 依次查找可能的配置文件位置
	searchPaths := []string{
		"./config.yaml",
		"./config.json",
		"../config.yaml",
		"/etc/qingmo/config.yaml",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// setDefaults 把默认值登记到 viper，AutomaticEnv 只认识登记过的键
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("env", c.Env)
	v.SetDefault("server.address", c.Server.Address)

	v.SetDefault("database.driver", c.Database.Driver)
	v.SetDefault("database.host", c.Database.Host)
	v.SetDefault("database.port", c.Database.Port)
	v.SetDefault("database.username", c.Database.Username)
	v.SetDefault("database.password", c.Database.Password)
	v.SetDefault("database.dbname", c.Database.DBName)
	v.SetDefault("database.use_unix_sock", c.Database.UseUnixSock)
	v.SetDefault("database.sqlite_path", c.Database.SQLitePath)
	v.SetDefault("database.min_pool_size", c.Database.MinPoolSize)
	v.SetDefault("database.max_pool_size", c.Database.MaxPoolSize)
	v.SetDefault("database.log_level", c.Database.LogLevel)
	v.SetDefault("database.seed", c.Database.Seed)

	v.SetDefault("session.secret", c.Session.Secret)
	v.SetDefault("session.realm", c.Session.Realm)
	v.SetDefault("session.cookie_name", c.Session.CookieName)
	v.SetDefault("session.flash_cookie_name", c.Session.FlashCookieName)
	v.SetDefault("session.max_age", c.Session.MaxAge)
	v.SetDefault("session.secure", c.Session.Secure)

	v.SetDefault("ai.base_url", c.AI.BaseURL)
	v.SetDefault("ai.api_key", c.AI.APIKey)
	v.SetDefault("ai.chat_model", c.AI.ChatModel)
	v.SetDefault("ai.image_model", c.AI.ImageModel)
	v.SetDefault("ai.image_size", c.AI.ImageSize)
	v.SetDefault("ai.dial_timeout", c.AI.DialTimeout)
	v.SetDefault("ai.download_timeout", c.AI.DownloadTimeout)
	v.SetDefault("ai.insecure_skip_verify", c.AI.InsecureSkipVerify)

	v.SetDefault("upload.max_bytes", c.Upload.MaxBytes)
	v.SetDefault("upload.allowed_exts", c.Upload.AllowedExts)

	v.SetDefault("storage.backend", c.Storage.Backend)
	v.SetDefault("storage.static_root", c.Storage.StaticRoot)
	v.SetDefault("storage.url_prefix", c.Storage.URLPrefix)
	v.SetDefault("storage.upload_dir", c.Storage.UploadDir)
	v.SetDefault("storage.generated_dir", c.Storage.GeneratedDir)
	v.SetDefault("storage.s3.region", c.Storage.S3.Region)
	v.SetDefault("storage.s3.bucket", c.Storage.S3.Bucket)
	v.SetDefault("storage.s3.base_endpoint", c.Storage.S3.BaseEndpoint)
	v.SetDefault("storage.s3.access_key", c.Storage.S3.AccessKey)
	v.SetDefault("storage.s3.secret_key", c.Storage.S3.SecretKey)
	v.SetDefault("storage.s3.public_base_url", c.Storage.S3.PublicBaseURL)
	v.SetDefault("storage.s3.use_path_style", c.Storage.S3.UsePathStyle)
	v.SetDefault("storage.retention.schedule", c.Storage.Retention.Schedule)
	v.SetDefault("storage.retention.max_age", c.Storage.Retention.MaxAge)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.dir", c.Log.Dir)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age_days", c.Log.MaxAgeDays)

	v.SetDefault("metrics.address", c.Metrics.Address)
	v.SetDefault("metrics.path", c.Metrics.Path)

	v.SetDefault("middleware.security.max_body_size", c.Middleware.Security.MaxBodySize)
	v.SetDefault("middleware.security.allowed_methods", c.Middleware.Security.AllowedMethods)
	v.SetDefault("middleware.cors.allow_origins", c.Middleware.CORS.AllowOrigins)
	v.SetDefault("middleware.cors.allow_methods", c.Middleware.CORS.AllowMethods)
	v.SetDefault("middleware.cors.allow_headers", c.Middleware.CORS.AllowHeaders)
	v.SetDefault("middleware.cors.expose_headers", c.Middleware.CORS.ExposeHeaders)
	v.SetDefault("middleware.cors.allow_credentials", c.Middleware.CORS.AllowCredentials)
	v.SetDefault("middleware.cors.max_age", c.Middleware.CORS.MaxAge)
	v.SetDefault("middleware.cors.trusted_domains", c.Middleware.CORS.TrustedDomains)
	v.SetDefault("middleware.rate_limit.rate", c.Middleware.RateLimit.Rate)
	v.SetDefault("middleware.rate_limit.interval", c.Middleware.RateLimit.Interval)
}

// loadFromEnv 从旧式环境变量加载配置
func loadFromEnv(config *Config) {
	// 服务器配置
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		config.Server.Address = v
	}

	// 环境配置
	if v := os.Getenv("APP_ENV"); v != "" {
		config.Env = v
	}

	if v := os.Getenv("MAX_BODY_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Middleware.Security.MaxBodySize = size
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			config.Middleware.RateLimit.Rate = rate
		}
	}

	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.Session.Secret = v
	}

	if v := os.Getenv("ZHIPU_API_KEY"); v != "" {
		config.AI.APIKey = v
	}

	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		config.Upload.AllowedExts = splitEnvList(v)
	}

	// 数据库配置
	if v := os.Getenv("DB_DRIVER"); v != "" {
		config.Database.Driver = strings.ToLower(v)
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}

	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}

	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.Username = v
	}

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}

	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.DBName = v
	}

	if v := os.Getenv("DB_SOCKET"); v != "" {
		config.Database.UseUnixSock = parseBool(v)
	}

	if v := os.Getenv("DB_LOG_LEVEL"); v != "" {
		config.Database.LogLevel = strings.ToLower(v)
	}
}

// 分割环境变量列表（支持逗号分隔的字符串）
func splitEnvList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// 转换字符串为布尔值
func parseBool(value string) bool {
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes"
}

// DSN 拼接 MySQL 连接串
func (c *Config) DSN() string {
	charsetParam := "charset=utf8mb4&parseTime=True&loc=Local"

	// 自动切换连接方式
	if c.Database.UseUnixSock {
		return fmt.Sprintf("%s:%s@unix(%s)/%s?%s",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host, // 这里host存储的是socket路径
			c.Database.DBName,
			charsetParam)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		charsetParam)
}

func (c *Config) InitDB() (*gorm.DB, error) {
	gormConfig := &gorm.Config{TranslateError: true}

	// 配置GORM日志级别
	switch c.Database.LogLevel {
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	case "error":
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	case "warn":
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch c.Database.Driver {
	case "", "mysql":
		dialector = mysql.Open(c.DSN())
	case "sqlite":
		dialector = sqlite.Open(c.Database.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	// 初始化数据库连接
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(c.Database.MinPoolSize)
	sqlDB.SetMaxOpenConns(c.Database.MaxPoolSize)

	return db, nil
}
