package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SettingRepo is the MySQL-backed SettingStore. The settings table is
// a plain key/value pair table; max_per_slot lives here so the
// capacity limit can be changed at runtime without a redeploy.
type SettingRepo struct {
	db *sql.DB
}

// NewSettingRepo returns a SettingRepo bound to the given database.
func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns the value for key, or ErrSettingNotFound.
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT v FROM settings WHERE k = ?`
	var v string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set upserts a value for key.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`
	_, err := r.db.ExecContext(ctx, q, key, value)
	return err
}
