package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig はコネクションプールの設定。
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig は最大接続数から既定のプール設定を返す。
// アイドル接続は最大接続数の半分（最低1）まで保持する。
func DefaultPoolConfig(maxOpenConns int) PoolConfig {
	idle := maxOpenConns / 2
	if idle < 1 {
		idle = 1
	}
	return PoolConfig{
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    idle,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Open はPostgreSQLの接続プールを開く。
// sql.Openは接続を試行しないため、疎通確認にはWaitForReadyを使用すること。
func Open(databaseURL string, pool PoolConfig) (*sql.DB, error) {
	if err := validateURL(databaseURL); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	return db, nil
}

// validateURL は接続URLのスキームを検証する。
// key=value形式のDSNはdocker-composeの設定と揃わないため受け付けない。
func validateURL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid DATABASE_URL: unsupported scheme %q", u.Scheme)
	}
	return nil
}
