package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frahmantamala/member-management/internal/auth"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

const credentialColumns = `SELECT id, email, password_hash, is_active FROM users`

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	return r.scan(r.db.WithContext(ctx).Raw(credentialColumns+` WHERE LOWER(email) = LOWER(?)`, email).Row())
}

func (r *Repository) GetCredentialsByID(ctx context.Context, userID int64) (*auth.Credentials, error) {
	return r.scan(r.db.WithContext(ctx).Raw(credentialColumns+` WHERE id = ?`, userID).Row())
}

func (r *Repository) scan(row *sql.Row) (*auth.Credentials, error) {
	var c auth.Credentials
	if err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
