// internal/data/models.go
package data

import (
	"database/sql"
	"errors"
	"math"

	"github.com/lib/pq"
)

// Models is a top-level container that groups all database model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sql directly.
//
// The fields are interfaces rather than concrete structs so handler tests can
// substitute in-memory fakes for the real PostgreSQL-backed models.
type Models struct {
	Books    BookStore    // Catalog operations on the books table
	Loans    LoanStore    // Loan lifecycle operations (the availability invariant lives here)
	Users    UserStore    // User accounts and credentials
	Sessions SessionStore // Cookie-backed login sessions
}

// NewModels constructs a Models value wired up to the given database connection pool.
// Call this once during application startup and store the result in applicationDependencies.
func NewModels(db *sql.DB) Models {
	return Models{
		Books:    BookModel{DB: db},
		Loans:    LoanModel{DB: db},
		Users:    UserModel{DB: db},
		Sessions: SessionModel{DB: db},
	}
}

// Sentinel errors returned by the model layer. Handlers translate these into
// HTTP responses; anything else coming out of a model is treated as an
// infrastructure failure and surfaced as a 500.
var (
	// ErrRecordNotFound is returned when a query finds no matching row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateISBN is returned when inserting or updating a book would
	// reuse an ISBN that already exists in the catalog.
	ErrDuplicateISBN = errors.New("duplicate isbn")

	// ErrDuplicateEmail is returned when registering a user with an email
	// address that is already taken.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrDuplicateLoan is returned when a user tries to borrow a book they
	// already hold an open loan for.
	ErrDuplicateLoan = errors.New("duplicate open loan")

	// ErrNoCopiesAvailable is returned when a borrow attempt finds the
	// book's available-copy counter at zero.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrBookHasOpenLoans is returned when deleting a book that still has
	// at least one open loan referencing it.
	ErrBookHasOpenLoans = errors.New("book has open loans")

	// ErrInvalidCredentials is returned by login when the email is unknown
	// or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
// (SQLSTATE 23505) on the named constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}

// Filters holds pagination parameters extracted from URL query strings.
// Sorting is not configurable: every listing in the API has a fixed order
// mandated by its contract (catalog by title, loans by due date).
type Filters struct {
	Page     int // Current page number (1-indexed)
	PageSize int // Number of records per page
}

// limit returns the SQL LIMIT value derived from PageSize.
func (f Filters) limit() int { return f.PageSize }

// offset returns the SQL OFFSET value derived from Page and PageSize.
func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata computes page metadata from total record count and filter values.
func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}
