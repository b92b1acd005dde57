package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/omnisphere/auth-service/internal/domain"
)

const userColumns = `id, email, username, password_hash, avatar_id, google_id, github_id, telegram_id, created_at`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DB exposes the underlying handle for health checks.
func (r *UserRepo) DB() *sql.DB { return r.db }

func (r *UserRepo) scanUserRow(row *sql.Row) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Email,
		&ur.Username,
		&ur.PasswordHash,
		&ur.AvatarID,
		&ur.GoogleID,
		&ur.GitHubID,
		&ur.TelegramID,
		&ur.CreatedAt,
	)
	return ur, err
}

// providerColumn maps a validated provider to its id column. Column names
// cannot be bound, so queries are assembled from this fixed set only.
func providerColumn(p domain.Provider) (string, error) {
	switch p {
	case domain.ProviderGoogle:
		return "google_id", nil
	case domain.ProviderGitHub:
		return "github_id", nil
	case domain.ProviderTelegram:
		return "telegram_id", nil
	}
	return "", domain.ErrUnsupportedProvider(string(p))
}

func asUniqueViolation(err error) (*domain.Error, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrUniqueViolation(pgErr.ConstraintName, err), true
	}
	return nil, false
}

// escapeLike quotes LIKE metacharacters so a prefix is matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	const q = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1;
`
	ur, err := r.scanUserRow(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1;
`
	ur, err := r.scanUserRow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}

	const q = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
LIMIT 1;
`
	ur, err := r.scanUserRow(r.db.QueryRowContext(ctx, q, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) FindByProviderID(ctx context.Context, p domain.Provider, externalID string) (domain.User, error) {
	if externalID == "" {
		return domain.User{}, domain.ErrMissingField("external_id")
	}
	col, err := providerColumn(p)
	if err != nil {
		return domain.User{}, err
	}

	q := `
SELECT ` + userColumns + `
FROM users
WHERE ` + col + ` = $1
LIMIT 1;
`
	ur, err := r.scanUserRow(r.db.QueryRowContext(ctx, q, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}

	const q = `
INSERT INTO users (id, email, username, password_hash, avatar_id, google_id, github_id, telegram_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + userColumns + `;
`
	ur, err := r.scanUserRow(r.db.QueryRowContext(ctx, q,
		u.ID,
		emptyToNull(u.Email),
		u.Username,
		emptyToNull(u.PasswordHash),
		ptrToNull(u.AvatarID),
		ptrToNull(u.GoogleID),
		ptrToNull(u.GitHubID),
		ptrToNull(u.TelegramID),
	))
	if err != nil {
		if uv, ok := asUniqueViolation(err); ok {
			return domain.User{}, uv
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetProviderID(ctx context.Context, userID string, p domain.Provider, externalID *string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	col, err := providerColumn(p)
	if err != nil {
		return err
	}

	q := `
UPDATE users
SET ` + col + ` = $2
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, ptrToNull(externalID))
	if err != nil {
		if uv, ok := asUniqueViolation(err); ok {
			return uv
		}
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) CountUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, domain.ErrMissingField("prefix")
	}

	const q = `SELECT COUNT(1) FROM users WHERE username LIKE $1;`

	var n int
	if err := r.db.QueryRowContext(ctx, q, escapeLike(prefix)+"%").Scan(&n); err != nil {
		return 0, domain.ErrDBUnavailable(err)
	}
	return n, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if newHash == "" {
		return domain.ErrMissingField("password_hash")
	}

	const q = `
UPDATE users
SET password_hash = $2,
    password_changed_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, newHash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) SetAvatarID(ctx context.Context, userID string, avatarID *string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}

	const q = `
UPDATE users
SET avatar_id = $2
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, ptrToNull(avatarID))
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
