package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewDB opens a postgres pool via the pgx stdlib driver and verifies
// connectivity before returning.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if debug {
		logConnInfo(ctx, db)
	}
	return db, nil
}

// logConnInfo prints which server/user/database we landed on. DSN secrets
// are never printed.
func logConnInfo(ctx context.Context, db *sql.DB) {
	var who, name, ver string
	_ = db.QueryRowContext(ctx, "SELECT current_user").Scan(&who)
	_ = db.QueryRowContext(ctx, "SELECT current_database()").Scan(&name)
	_ = db.QueryRowContext(ctx, "SHOW server_version").Scan(&ver)
	fmt.Printf("DB CONNECTED: user=%s db=%s version=%s\n", who, name, ver)
}
