package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore 基于 PostgreSQL 的暂存（每个会话一行，上传时 upsert）
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// EnsureSchema 创建暂存表
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS staged_workbooks (
			session_id TEXT PRIMARY KEY,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create staged_workbooks: %w", err)
	}
	return nil
}

func (p *PostgresStore) Put(ctx context.Context, sessionID string, data []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO staged_workbooks (session_id, data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		sessionID, data, p.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to stage workbook: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	var (
		data      []byte
		updatedAt time.Time
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM staged_workbooks WHERE session_id = $1`,
		sessionID,
	).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to load staged workbook: %w", err)
	}
	if p.ttl > 0 && p.now().After(updatedAt.Add(p.ttl)) {
		return nil, ErrMiss
	}
	return data, nil
}

func (p *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM staged_workbooks WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete staged workbook: %w", err)
	}
	return nil
}

// PurgeExpired 删除过期会话，返回删除行数
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	if p.ttl <= 0 {
		return 0, nil
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM staged_workbooks WHERE updated_at < $1`,
		p.now().Add(-p.ttl).UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge staged workbooks: %w", err)
	}
	return res.RowsAffected()
}
