package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server      ServerConfig              `mapstructure:"server"`      // 服务器配置
	Database    DatabaseConfig            `mapstructure:"database"`    // PostgreSQL配置
	Log         LogConfig                 `mapstructure:"log"`         // 日志配置
	Sync        SyncConfig                `mapstructure:"sync"`        // 同步调度配置
	Sheets      SheetsConfig              `mapstructure:"sheets"`      // Google Sheet 报名表配置
	LeetCode    map[string]PlatformConfig `mapstructure:"leetcode"`    // 按区服（us/cn）独立配置
	Catalog     CatalogConfig             `mapstructure:"catalog"`     // 题库种子配置
	Redis       RedisConfig               `mapstructure:"redis"`       // 排行榜缓存
	Leaderboard LeaderboardConfig         `mapstructure:"leaderboard"` // 排行榜配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Enabled         bool          `mapstructure:"enabled"`          // 是否开启定时同步
	Interval        time.Duration `mapstructure:"interval"`         // 定时同步间隔
	SubmissionLimit int           `mapstructure:"submission_limit"` // 每次拉取的最近AC条数
}

// SheetsConfig Google Sheet 配置
type SheetsConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"` // 表格ID
	APIKey        string `mapstructure:"api_key"`        // Google API Key（从 .env 覆盖）
	Range         string `mapstructure:"range"`          // 读取范围，默认 A1:Z
	Timeout       int    `mapstructure:"timeout"`        // 请求超时（秒）
	Proxy         string `mapstructure:"proxy"`          // 代理地址
}

// PlatformConfig 单个区服的独立配置
type PlatformConfig struct {
	BaseURL  string `mapstructure:"base_url"`  // GraphQL 地址
	ProofURL string `mapstructure:"proof_url"` // 提交详情地址模板，%s 为提交ID
	Timeout  int    `mapstructure:"timeout"`   // 请求超时（秒）
	Proxy    string `mapstructure:"proxy"`     // 代理地址
}

// CatalogConfig 题库配置
type CatalogConfig struct {
	SeedPath string `mapstructure:"seed_path"` // 种子CSV路径
}

// RedisConfig 排行榜缓存配置，Addr 为空时不启用
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LeaderboardConfig 排行榜配置
type LeaderboardConfig struct {
	Timezone string        `mapstructure:"timezone"`  // 计算“今天”所用时区
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 缓存有效期
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 10*time.Minute)
	v.SetDefault("sync.submission_limit", 15)
	v.SetDefault("sheets.range", "A1:Z")
	v.SetDefault("sheets.timeout", 30)
	v.SetDefault("catalog.seed_path", "./data/leetcode_problem.csv")
	v.SetDefault("redis.prefix", "progresssync:leaderboard:")
	v.SetDefault("leaderboard.timezone", "UTC")
	v.SetDefault("leaderboard.cache_ttl", 5*time.Minute)
	v.SetDefault("leetcode", map[string]interface{}{
		"us": map[string]interface{}{
			"base_url":  "https://leetcode.com/graphql",
			"proof_url": "https://leetcode.com/submissions/detail/%s/",
			"timeout":   15,
		},
		"cn": map[string]interface{}{
			"base_url":  "https://leetcode.cn/graphql",
			"proof_url": "https://leetcode.cn/submissions/detail/%s/",
			"timeout":   15,
		},
	})
}

// LoadConfig 加载配置文件（默认 ./config/config.yaml），敏感项从 .env 覆盖（不提交 git）
// path 非空时直接读取该文件
func LoadConfig(path string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	v.SetTypeByDefaultValue(true)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("GOOGLE_SHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Sheets.APIKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	for region, p := range cfg.LeetCode {
		if v := os.Getenv("LEETCODE_PROXY"); v != "" {
			p.Proxy = v
		}
		cfg.LeetCode[region] = p
	}
}

// GORMLogLevel 将配置中的字符串转换为 GORM 日志级别
func (d *DatabaseConfig) GORMLogLevel() logger.LogLevel {
	switch d.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(d.GORMLogLevel()),
		TranslateError: true,
	}
}

// Location 排行榜时区，解析失败回退 UTC
func (l *LeaderboardConfig) Location() *time.Location {
	if l.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
