package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// uma conexão por worker em pico; o append é serializado de qualquer forma
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// schemaBets guarda as apostas na ordem de chegada (id serial)
const schemaBets = `
CREATE TABLE IF NOT EXISTS bets (
	id          BIGSERIAL PRIMARY KEY,
	agency      INTEGER NOT NULL,
	first_name  TEXT    NOT NULL,
	last_name   TEXT    NOT NULL,
	document    TEXT    NOT NULL,
	birthdate   TEXT    NOT NULL,
	number      INTEGER NOT NULL
)`

// EnsureSchema cria as tabelas usadas pelo lottery-server se ainda não existirem
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaBets); err != nil {
		return fmt.Errorf("create bets table: %w", err)
	}
	return nil
}
