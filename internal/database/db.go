package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/learntrack/internal/config"
)

// DSN builds the driver connection string for cfg; the driver's default
// collation is already utf8mb4.  MultiStatements lets Migrate apply the
// embedded schema in one round trip, and ClientFoundRows makes RowsAffected
// count matched rows, which the owner-conditional updates rely on.
func DSN(cfg config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass // empty allowed
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true // DATETIME -> time.Time
	mc.Loc = time.UTC   // keeps times consistent
	mc.MultiStatements = true
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

// Open connects to the course database and verifies the connection within
// ctx.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
