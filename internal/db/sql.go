package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const (
	DriverMySQL      = "mysql"
	DriverClickHouse = "clickhouse"
)

type SQLOpts struct {
	Driver          string // mysql | clickhouse
	DSN             string // e.g. user:pass@tcp(127.0.0.1:3306)/relay?parseTime=true or clickhouse://default:@localhost:9000/relay
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration // default 5s
}

// NormalizeDriver maps the configured name onto a registered database/sql driver.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DriverMySQL:
		return DriverMySQL, nil
	case DriverClickHouse, "ch":
		return DriverClickHouse, nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", name)
	}
}

// NewSQLConnection opens a *sqlx.DB with sensible pool/timeouts.
func NewSQLConnection(opts SQLOpts) (*sqlx.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("empty %s DSN", opts.Driver)
	}
	driver, err := NormalizeDriver(opts.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
