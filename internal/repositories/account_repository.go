package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"public-chat/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
)

// AccountRepository abstracts users and their sessions.
type AccountRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateSession(ctx context.Context, session models.Session) (models.Session, error)
	SessionActive(ctx context.Context, sessionID, userID string) (bool, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

// AccountRepo is a sqlx implementation of AccountRepository.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo constructs an AccountRepo.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// CreateUser stores a user; emails are unique.
func (r *AccountRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	var out models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4) RETURNING id, email, name, password_hash, created_at`,
		user.ID, user.Email, user.Name, user.PasswordHash).StructScan(&out)
	if isUniqueViolation(err) {
		return models.User{}, ErrEmailTaken
	}
	return out, err
}

// GetUser fetches a user by id.
func (r *AccountRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, name, password_hash, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail fetches a user by email.
func (r *AccountRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, name, password_hash, created_at FROM users WHERE lower(email)=lower($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// CreateSession stores a session row.
func (r *AccountRepo) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	var out models.Session
	err := r.db.QueryRowxContext(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3) RETURNING id, user_id, expires_at, created_at`,
		session.ID, session.UserID, session.ExpiresAt).StructScan(&out)
	return out, err
}

// SessionActive reports whether the session exists, belongs to the user and has not expired.
func (r *AccountRepo) SessionActive(ctx context.Context, sessionID, userID string) (bool, error) {
	var active bool
	err := r.db.GetContext(ctx, &active, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id=$1 AND user_id=$2 AND expires_at > NOW())`, sessionID, userID)
	return active, err
}

// DeleteSession removes a session owned by the user.
func (r *AccountRepo) DeleteSession(ctx context.Context, sessionID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1 AND user_id=$2`, sessionID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSessionNotFound
	}
	return nil
}
