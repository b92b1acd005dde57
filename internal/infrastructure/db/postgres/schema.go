package postgres

import (
	"context"
	"database/sql"

	"github.com/omnisphere/auth-service/internal/domain"
)

// EnsureSchema creates the users table and its uniqueness indexes if they do
// not exist yet. Restart safe. Email and the provider id columns use partial
// unique indexes so NULL slots never collide.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
    id                  TEXT PRIMARY KEY,
    email               TEXT,
    username            TEXT NOT NULL,
    password_hash       TEXT,
    avatar_id           TEXT,
    google_id           TEXT,
    github_id           TEXT,
    telegram_id         TEXT,
    password_changed_at TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_key
    ON users (email) WHERE email IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key
    ON users (username);
CREATE UNIQUE INDEX IF NOT EXISTS users_google_id_key
    ON users (google_id) WHERE google_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_github_id_key
    ON users (github_id) WHERE github_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_telegram_id_key
    ON users (telegram_id) WHERE telegram_id IS NOT NULL;
`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
