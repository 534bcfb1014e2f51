package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"membercrm/config"

	"github.com/lib/pq"
)

var DB *sql.DB

func InitDB(cfg config.DatabaseConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("database url not set (CRM_DATABASE_URL or DATABASE_URL)")
	}

	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	DB = conn
	return nil
}

func GetDB() *sql.DB {
	return DB
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
