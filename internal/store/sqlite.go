package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"agent-league/internal/config"
)

// 连接级 PRAGMA：WAL 提升并发读写，NORMAL 在 WAL 下已足够安全。
var bootPragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
}

// Store 封装 SQLite 连接，负责联赛历史的落盘。
type Store struct {
	db *sql.DB
}

// NewSQLite 根据配置初始化 SQLite 存储。
// 内存模式下连接数强制为1，避免每个连接各自持有一份独立内存库。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 数据库失败: %w", err)
	}

	if cfg.InMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("连接 SQLite 数据库失败: %w", err)
	}

	for _, pragma := range bootPragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("执行 %s 失败: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}

	return &Store{db: db}, nil
}

// buildDSN 组装带连接参数的 DSN，文件模式下顺带创建父目录。
func buildDSN(cfg config.DatabaseConfig) (string, error) {
	const params = "?_busy_timeout=5000&_foreign_keys=on"
	if cfg.InMemory {
		return ":memory:" + params, nil
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("创建目录 %q 失败: %w", dir, err)
		}
	}
	return cfg.Path + params, nil
}

// DB 返回底层 *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
