package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	Timeout  time.Duration
}

// DSN renders the driver connection string. Time columns are returned as
// text so date reformatting stays in one place.
func (info ConnectionInfo) DSN() string {
	cfg := driver.NewConfig()
	cfg.User = info.Username
	cfg.Passwd = info.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
	cfg.DBName = info.DBName
	cfg.ParseTime = false
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if info.Timeout > 0 {
		cfg.Timeout = info.Timeout
		cfg.ReadTimeout = 10 * info.Timeout
	}
	return cfg.FormatDSN()
}

func NewMySQLConnection(ctx context.Context, info ConnectionInfo) (*sql.DB, error) {
	db, err := sql.Open("mysql", info.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql %s: %w", net.JoinHostPort(info.Host, strconv.Itoa(info.Port)), err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
