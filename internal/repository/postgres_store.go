package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores entities in the entities table as JSONB.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend instantiates the backend.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (p *PostgresBackend) Get(ctx context.Context, kind, id string) (Record, error) {
	const query = `SELECT version, body, updated_at FROM entities WHERE kind=$1 AND id=$2`
	rec := Record{Kind: kind, ID: id}
	err := p.pool.QueryRow(ctx, query, kind, id).Scan(&rec.Version, &rec.Body, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (p *PostgresBackend) List(ctx context.Context, kind string) ([]Record, error) {
	const query = `SELECT id, version, body, updated_at FROM entities WHERE kind=$1 ORDER BY id`
	rows, err := p.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{Kind: kind}
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Body, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresBackend) CompareAndSwap(ctx context.Context, writes ...Write) error {
	if err := checkDistinct(writes); err != nil {
		return err
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `
        INSERT INTO entities (kind, id, version, body, updated_at)
        VALUES ($1, $2, 1, $3, NOW())
        ON CONFLICT (kind, id) DO NOTHING`
	const update = `
        UPDATE entities SET version=version+1, body=$3, updated_at=NOW()
        WHERE kind=$1 AND id=$2 AND version=$4`

	for _, w := range writes {
		var tag pgconn.CommandTag
		if w.ExpectedVersion == 0 {
			tag, err = tx.Exec(ctx, insert, w.Kind, w.ID, w.Body)
		} else {
			tag, err = tx.Exec(ctx, update, w.Kind, w.ID, w.Body, w.ExpectedVersion)
		}
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", w.Kind, w.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s/%s no longer at version %d", ErrVersionConflict, w.Kind, w.ID, w.ExpectedVersion)
		}
	}

	return tx.Commit(ctx)
}
