package postgres

import (
	"database/sql"
	"time"

	"github.com/omnisphere/auth-service/internal/domain"
)

type userRow struct {
	ID           string
	Email        sql.NullString
	Username     string
	PasswordHash sql.NullString
	AvatarID     sql.NullString
	GoogleID     sql.NullString
	GitHubID     sql.NullString
	TelegramID   sql.NullString
	CreatedAt    time.Time
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:           ur.ID,
		Email:        ur.Email.String,
		Username:     ur.Username,
		PasswordHash: ur.PasswordHash.String,
		AvatarID:     nullToPtr(ur.AvatarID),
		GoogleID:     nullToPtr(ur.GoogleID),
		GitHubID:     nullToPtr(ur.GitHubID),
		TelegramID:   nullToPtr(ur.TelegramID),
	}
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// emptyToNull stores empty strings as NULL so partial unique indexes on
// email keep working for accounts created without one.
func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
