// internal/data/sessions.go
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionDuration is how long a login session stays valid.
const SessionDuration = 7 * 24 * time.Hour

// Session is one login of one user, identified by an opaque random token
// carried in an HttpOnly cookie. Expired sessions are simply ignored on
// lookup; there is no refresh.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore is the interface the handlers and the authenticate middleware
// use to manage login sessions.
type SessionStore interface {
	// New creates and persists a fresh session for the user.
	New(userID int64) (*Session, error)

	// GetUser resolves a session token to its user. Returns
	// ErrRecordNotFound for unknown or expired tokens.
	GetUser(token string) (*User, error)

	// Delete removes the session with the given token, if it exists.
	Delete(token string) error
}

// SessionModel wraps a *sql.DB connection and provides session operations.
type SessionModel struct {
	DB *sql.DB // Shared database connection pool
}

// New inserts a session with a random UUID token and a 7-day expiry.
func (m SessionModel) New(userID int64) (*Session, error) {
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(SessionDuration),
	}

	query := `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := m.DB.QueryRow(query, session.Token, session.UserID, session.ExpiresAt).Scan(&session.CreatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetUser resolves a session token to its user in one round trip by joining
// sessions with users. Expired sessions are treated the same as unknown ones.
func (m SessionModel) GetUser(token string) (*User, error) {
	query := `
		SELECT u.user_id, u.name, u.email, u.password_hash, u.is_admin, u.created_at
		FROM sessions s
		INNER JOIN users u ON u.user_id = s.user_id
		WHERE s.token = $1 AND s.expires_at > CURRENT_TIMESTAMP`

	var user User
	err := m.DB.QueryRow(query, token).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password.hash,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}

// Delete removes the session with the given token. Deleting a token that no
// longer exists is not an error; logout is idempotent.
func (m SessionModel) Delete(token string) error {
	_, err := m.DB.Exec(`DELETE FROM sessions WHERE token = $1`, token)
	return err
}
