package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 连接参数
type Options struct {
	Debug        bool // 打印所有 SQL
	MaxIdleConns int
	MaxOpenConns int
}

// DefaultOptions 默认连接池
func DefaultOptions() Options {
	return Options{MaxIdleConns: 10, MaxOpenConns: 100}
}

// Dialector 按 DSN 选择驱动：sqlite:// 前缀或 :memory: 使用 sqlite，其余为 postgres
func Dialector(dsn string) gorm.Dialector {
	switch {
	case dsn == ":memory:":
		return sqlite.Open(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return postgres.Open(dsn)
	}
}

// InitDB 初始化数据库连接
// dsn: 数据库连接字符串
// models: 需要自动建表/迁移的结构体指针
func InitDB(dsn string, opts Options, models ...interface{}) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(Dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 SQL DB 失败: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// sqlite 单连接，避免 :memory: 每个连接各一份库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("自动建表出错: %w", err)
		}
	}

	return db, nil
}
