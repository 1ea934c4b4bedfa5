package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/admin-ops-service/internal/domain"
)

// TransitionFilter narrows an audit query. Empty fields match everything.
type TransitionFilter struct {
	EntityKind domain.EntityKind
	EntityID   string
	ActorID    string
	Limit      int
	Offset     int
}

// TransitionLog is the append-only audit sink for accepted transitions.
type TransitionLog interface {
	Append(ctx context.Context, records ...domain.TransitionRecord) error
	List(ctx context.Context, filter TransitionFilter) ([]domain.TransitionRecord, error)
}

const defaultAuditLimit = 100

// MemoryTransitionLog keeps records in insertion order.
type MemoryTransitionLog struct {
	mu      sync.RWMutex
	records []domain.TransitionRecord
}

// NewMemoryTransitionLog creates an empty log.
func NewMemoryTransitionLog() *MemoryTransitionLog {
	return &MemoryTransitionLog{}
}

func (l *MemoryTransitionLog) Append(_ context.Context, records ...domain.TransitionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
	return nil
}

func (l *MemoryTransitionLog) List(_ context.Context, filter TransitionFilter) ([]domain.TransitionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	limit, offset := pageBounds(filter)
	var out []domain.TransitionRecord
	skipped := 0
	for _, rec := range l.records {
		if filter.EntityKind != "" && rec.EntityKind != filter.EntityKind {
			continue
		}
		if filter.EntityID != "" && rec.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorID != "" && rec.ActorID != filter.ActorID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// PostgresTransitionLog writes to the transition_log table.
type PostgresTransitionLog struct {
	pool *pgxpool.Pool
}

// NewPostgresTransitionLog instantiates the log.
func NewPostgresTransitionLog(pool *pgxpool.Pool) *PostgresTransitionLog {
	return &PostgresTransitionLog{pool: pool}
}

func (l *PostgresTransitionLog) Append(ctx context.Context, records ...domain.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `
        INSERT INTO transition_log (id, entity_kind, entity_id, from_state, to_state, actor_id, actor_role, comment, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, rec.ID, rec.EntityKind, rec.EntityID, rec.From, rec.To,
			rec.ActorID, rec.ActorRole, rec.Comment, rec.OccurredAt)
	}
	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("append transition: %w", err)
		}
	}
	return nil
}

func (l *PostgresTransitionLog) List(ctx context.Context, filter TransitionFilter) ([]domain.TransitionRecord, error) {
	base := `SELECT id, entity_kind, entity_id, from_state, to_state, actor_id, actor_role, comment, occurred_at
             FROM transition_log`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EntityKind != "" {
		args = append(args, filter.EntityKind)
		clauses = append(clauses, fmt.Sprintf("entity_kind=$%d", len(args)))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		clauses = append(clauses, fmt.Sprintf("entity_id=$%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_id=$%d", len(args)))
	}

	limit, offset := pageBounds(filter)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY seq LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TransitionRecord
	for rows.Next() {
		var rec domain.TransitionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.EntityKind,
			&rec.EntityID,
			&rec.From,
			&rec.To,
			&rec.ActorID,
			&rec.ActorRole,
			&rec.Comment,
			&rec.OccurredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func pageBounds(filter TransitionFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
