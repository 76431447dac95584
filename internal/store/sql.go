package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ Store = SQL{}

// SQL stores values in the kv table created by the embedded migrations.
type SQL struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE name=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s SQL) Set(ctx context.Context, key, value string) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO kv(name,value,updated_at) VALUES (?,?,?)
ON CONFLICT(name) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, now().UTC().Format(time.RFC3339))
	return err
}
