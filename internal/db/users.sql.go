package db

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, email, password_hash, display_name, verified, verify_token, reset_token, reset_expires, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	var verified int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &verified,
		&u.VerifyToken, &u.ResetToken, &u.ResetExpires, &u.CreatedAt)
	u.Verified = verified != 0
	return u, translateErr(err)
}

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	VerifyToken  string
	CreatedAt    time.Time
}

const createUser = `INSERT INTO users (id, email, password_hash, display_name, verified, verify_token, created_at)
VALUES (?, ?, ?, ?, 0, ?, ?)
RETURNING ` + userColumns

// CreateUser inserts an unverified user. Returns ErrConflict if the email is taken.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID, arg.Email, arg.PasswordHash, arg.DisplayName, arg.VerifyToken, arg.CreatedAt)
	return scanUser(row)
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const verifyUser = `UPDATE users SET verified = 1, verify_token = NULL WHERE verify_token = ?`

// VerifyUser marks the user holding token as verified and consumes the token.
// Returns ErrNotFound if no user holds it.
func (q *Queries) VerifyUser(ctx context.Context, token string) error {
	result, err := q.db.ExecContext(ctx, verifyUser, token)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type SetResetTokenParams struct {
	ID      string
	Token   string
	Expires time.Time
}

const setResetToken = `UPDATE users SET reset_token = ?, reset_expires = ? WHERE id = ?`

func (q *Queries) SetResetToken(ctx context.Context, arg SetResetTokenParams) error {
	_, err := q.db.ExecContext(ctx, setResetToken, arg.Token, arg.Expires, arg.ID)
	return err
}

const getUserByResetToken = `SELECT ` + userColumns + ` FROM users WHERE reset_token = ?`

// GetUserByResetToken returns the user holding token. Callers check
// ResetExpires themselves.
func (q *Queries) GetUserByResetToken(ctx context.Context, token string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByResetToken, token))
}

const resetPassword = `UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires = NULL WHERE id = ?`

func (q *Queries) ResetPassword(ctx context.Context, id, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, resetPassword, passwordHash, id)
	return err
}

// nullString converts an optional string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
