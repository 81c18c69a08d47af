// Package config 从环境变量和可选的 config.yaml 读取配置
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseDSN string
	JWTSecret   string

	Autosave  AutosaveConfig
	Retention RetentionConfig
	Session   SessionConfig
	Catalog   CatalogConfig
	Storage   StorageConfig
	Media     MediaConfig
}

// AutosaveConfig 自动保存
type AutosaveConfig struct {
	Interval time.Duration
	Timeout  time.Duration // 单次保存超时
}

// RetentionConfig 草稿保留策略
type RetentionConfig struct {
	MaxPerOwner int
	MaxAge      time.Duration
	SweepSpec   string // cron 表达式（含秒）
}

// SessionConfig 编辑会话
type SessionConfig struct {
	IdleTTL    time.Duration
	ReaperSpec string
}

// CatalogConfig Catalog API
type CatalogConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// StorageConfig 媒体存储
type StorageConfig struct {
	Provider  string // s3 | local
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3 兼容服务的自定义端点；local 模式下为访问前缀
	CDNDomain string
	BasePath  string
}

// MediaConfig 媒体上传
type MediaConfig struct {
	MaxParallel int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=listing_studio port=5432 sslmode=disable")
	v.SetDefault("jwt.secret", "")

	v.SetDefault("autosave.interval", 30*time.Second)
	v.SetDefault("autosave.timeout", 10*time.Second)

	v.SetDefault("retention.max_per_owner", 10)
	v.SetDefault("retention.max_age", 30*24*time.Hour)
	v.SetDefault("retention.sweep_spec", "0 0 * * * *")

	v.SetDefault("session.idle_ttl", 2*time.Hour)
	v.SetDefault("session.reaper_spec", "0 */5 * * * *")

	v.SetDefault("catalog.base_url", "http://localhost:9090")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.timeout", 15*time.Second)
	v.SetDefault("catalog.debug", false)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.cdn_domain", "")
	v.SetDefault("storage.base_path", "./uploads")

	v.SetDefault("media.max_parallel", 4)
}

// Load 读取配置，环境变量优先（AUTOSAVE_INTERVAL 对应 autosave.interval）
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		Env:         v.GetString("env"),
		Port:        v.GetString("port"),
		LogLevel:    v.GetString("log.level"),
		DatabaseDSN: v.GetString("database.dsn"),
		JWTSecret:   v.GetString("jwt.secret"),
		Autosave: AutosaveConfig{
			Interval: v.GetDuration("autosave.interval"),
			Timeout:  v.GetDuration("autosave.timeout"),
		},
		Retention: RetentionConfig{
			MaxPerOwner: v.GetInt("retention.max_per_owner"),
			MaxAge:      v.GetDuration("retention.max_age"),
			SweepSpec:   v.GetString("retention.sweep_spec"),
		},
		Session: SessionConfig{
			IdleTTL:    v.GetDuration("session.idle_ttl"),
			ReaperSpec: v.GetString("session.reaper_spec"),
		},
		Catalog: CatalogConfig{
			BaseURL: v.GetString("catalog.base_url"),
			APIKey:  v.GetString("catalog.api_key"),
			Timeout: v.GetDuration("catalog.timeout"),
			Debug:   v.GetBool("catalog.debug"),
		},
		Storage: StorageConfig{
			Provider:  v.GetString("storage.provider"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Endpoint:  v.GetString("storage.endpoint"),
			CDNDomain: v.GetString("storage.cdn_domain"),
			BasePath:  v.GetString("storage.base_path"),
		},
		Media: MediaConfig{
			MaxParallel: v.GetInt("media.max_parallel"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置合法性
func (c *Config) Validate() error {
	if c.Autosave.Interval < time.Second {
		return fmt.Errorf("autosave.interval 不能小于 1s: %s", c.Autosave.Interval)
	}
	if c.Retention.MaxPerOwner < 1 {
		return fmt.Errorf("retention.max_per_owner 必须大于 0")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age 必须大于 0")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl 必须大于 0")
	}
	if c.Env == "production" && c.JWTSecret == "" {
		return fmt.Errorf("生产环境必须配置 JWT_SECRET")
	}
	return nil
}
