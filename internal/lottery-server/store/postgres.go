package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
)

// Postgres implementa Store na tabela bets (ver db.EnsureSchema)
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Append insere o lote numa transação única
func (p *Postgres) Append(ctx context.Context, batch []bets.Bet) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStoreWrite, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bets (agency,first_name,last_name,document,birthdate,number)
		VALUES ($1,$2,$3,$4,$5,$6)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrStoreWrite, err)
	}
	defer stmt.Close()

	for _, b := range batch {
		if _, err := stmt.ExecContext(ctx, b.Agency, b.FirstName, b.LastName, b.Document, b.BirthDate, b.Number); err != nil {
			return fmt.Errorf("%w: insert: %w", ErrStoreWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStoreWrite, err)
	}
	return nil
}

// ScanAll lê todas as apostas na ordem de inserção
func (p *Postgres) ScanAll(ctx context.Context) ([]bets.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT agency,first_name,last_name,document,birthdate,number
		FROM bets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrStoreRead, err)
	}
	defer rows.Close()

	var out []bets.Bet
	for rows.Next() {
		var b bets.Bet
		if err := rows.Scan(&b.Agency, &b.FirstName, &b.LastName, &b.Document, &b.BirthDate, &b.Number); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStoreRead, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrStoreRead, err)
	}
	return out, nil
}
