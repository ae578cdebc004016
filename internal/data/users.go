// internal/data/users.go
package data

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuslms/library-api/internal/validator"
)

// AnonymousUser represents an unauthenticated request. The authenticate
// middleware stores it in the request context when no valid session cookie
// is present, so handlers never have to deal with a nil user.
var AnonymousUser = &User{}

// User represents a library member (or administrator) account.
// The password hash never appears in JSON output.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  password  `json:"-"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAnonymous reports whether this is the AnonymousUser sentinel.
func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

// password wraps a bcrypt hash together with the optional plaintext it was
// derived from. Keeping both lets validation inspect the plaintext while the
// database only ever sees the hash.
type password struct {
	plaintext *string
	hash      []byte
}

// bcryptCost is the work factor for password hashing.
const bcryptCost = 12

// Set hashes the plaintext password with bcrypt and stores both values.
func (p *password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcryptCost)
	if err != nil {
		return err
	}
	p.plaintext = &plaintextPassword
	p.hash = hash
	return nil
}

// Matches reports whether the plaintext password matches the stored hash.
func (p *password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.hash, []byte(plaintextPassword))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// ValidateEmail checks that email is present and plausibly formed.
func ValidateEmail(v *validator.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

// ValidatePasswordPlaintext checks the plaintext password length bounds.
// The 72-byte upper bound is bcrypt's own input limit.
func ValidatePasswordPlaintext(v *validator.Validator, plaintext string) {
	v.Check(plaintext != "", "password", "must be provided")
	v.Check(len(plaintext) >= 8, "password", "must be at least 8 characters long")
	v.Check(len(plaintext) <= 72, "password", "must not be more than 72 characters long")
}

// ValidateUser runs the field-level checks for registering a user.
func ValidateUser(v *validator.Validator, user *User) {
	v.Check(user.Name != "", "name", "must be provided")
	v.Check(len(user.Name) <= 500, "name", "must not be more than 500 characters long")

	ValidateEmail(v, user.Email)

	if user.Password.plaintext != nil {
		ValidatePasswordPlaintext(v, *user.Password.plaintext)
	}

	// A user must never reach the database without a hash; that is a
	// programming error, not a client error.
	if user.Password.hash == nil {
		panic("missing password hash for user")
	}
}

// UserStore is the interface the handlers use to talk to the users table.
type UserStore interface {
	Insert(user *User) error
	GetByEmail(email string) (*User, error)
	Get(id int64) (*User, error)
}

// UserModel wraps a *sql.DB connection and provides methods for user accounts.
type UserModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new user record to the database.
// Returns ErrDuplicateEmail if the email address is already registered.
func (m UserModel) Insert(user *User) error {
	query := `
		INSERT INTO users (name, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, created_at`

	args := []any{user.Name, user.Email, user.Password.hash, user.IsAdmin}

	err := m.DB.QueryRow(query, args...).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail retrieves the user registered under the given email address.
// Returns ErrRecordNotFound if no such user exists.
func (m UserModel) GetByEmail(email string) (*User, error) {
	query := `
		SELECT user_id, name, email, password_hash, is_admin, created_at
		FROM users
		WHERE email = $1`

	var user User
	err := m.DB.QueryRow(query, email).Scan(
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

// Get retrieves a single user by its primary key.
// Returns ErrRecordNotFound if no user with the given id exists.
func (m UserModel) Get(id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT user_id, name, email, password_hash, is_admin, created_at
		FROM users
		WHERE user_id = $1`

	var user User
	err := m.DB.QueryRow(query, id).Scan(
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
