// Package data provides the data models and database interaction logic
// for the library catalog-and-loan system.
package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/campuslms/library-api/internal/validator"
)

// Book represents a single title in the catalog.
// It maps directly to a row in the "books" table.
//
// The copy counters obey the availability invariant: at every moment
// 0 <= AvailableCopies <= TotalCopies, and the number of open loans
// referencing the book equals TotalCopies - AvailableCopies. Metadata is
// mutated by the catalog handlers; the counters are mutated only by the
// loan model.
type Book struct {
	ID              int64     `json:"id"`              // Unique identifier assigned by the database
	Title           string    `json:"title"`           // Title of the book
	Author          string    `json:"author"`          // Author of the book
	ISBN            string    `json:"isbn"`            // ISBN identifier, unique across the catalog
	Description     string    `json:"description,omitempty"` // Optional short description
	CoverURL        string    `json:"cover_url,omitempty"`   // Optional cover image URL
	TotalCopies     int       `json:"total_copies"`     // Number of copies the library owns
	AvailableCopies int       `json:"available_copies"` // Copies currently on the shelf
	CreatedAt       time.Time `json:"created_at"`       // Timestamp when the record was created
	UpdatedAt       time.Time `json:"updated_at"`       // Timestamp when the record was last modified
}

// LoanAnnotation is the slice of a loan attached to each catalog entry for
// an authenticated requester: just enough for the caller to render "you
// borrowed this, due on ...".
type LoanAnnotation struct {
	ID         int64     `json:"id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
}

// BookWithLoan is a catalog entry annotated with the requester's own open
// loan on that book, or nil if they do not currently hold one. The "loan"
// key is always present in the JSON so clients can distinguish "not
// borrowed" without probing for a missing field.
type BookWithLoan struct {
	Book
	Loan *LoanAnnotation `json:"loan"`
}

// ValidateBook runs the field-level checks for creating or updating a book.
func ValidateBook(v *validator.Validator, book *Book) {
	v.Check(book.Title != "", "title", "must be provided")
	v.Check(len(book.Title) <= 500, "title", "must not be more than 500 characters long")
	v.Check(book.Author != "", "author", "must be provided")
	v.Check(len(book.Author) <= 500, "author", "must not be more than 500 characters long")
	v.Check(book.ISBN != "", "isbn", "must be provided")
	v.Check(len(book.ISBN) <= 32, "isbn", "must not be more than 32 characters long")
}

// BookStore is the interface the handlers use to talk to the books table.
// BookModel is the PostgreSQL implementation; tests substitute in-memory fakes.
type BookStore interface {
	Insert(book *Book) error
	Get(id int64) (*Book, error)
	GetAll(search string, requesterID int64, filters Filters) ([]*BookWithLoan, Metadata, error)
	Update(book *Book) error
	Delete(id int64) error
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting catalog records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new book record to the database with a full shelf
// (available_copies starts equal to total_copies).
// After a successful insert, the database-assigned book_id, created_at, and
// updated_at values are written back into the book struct.
// Returns ErrDuplicateISBN if the ISBN is already in the catalog.
func (m BookModel) Insert(book *Book) error {
	query := `
		INSERT INTO books (title, author, isbn, description, cover_url, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING book_id, available_copies, created_at, updated_at`

	args := []any{
		book.Title,
		book.Author,
		book.ISBN,
		book.Description,
		book.CoverURL,
		book.TotalCopies,
	}

	err := m.DB.QueryRow(query, args...).Scan(
		&book.ID,
		&book.AvailableCopies,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		// The unique index on isbn is the authority on duplicates; there is
		// no racy pre-check.
		if isUniqueViolation(err, "books_isbn_key") {
			return ErrDuplicateISBN
		}
		return err
	}

	return nil
}

// Get retrieves a single book by its primary key.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT book_id, title, author, isbn, description, cover_url,
		       total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE book_id = $1`

	var book Book
	err := m.DB.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.Description,
		&book.CoverURL,
		&book.TotalCopies,
		&book.AvailableCopies,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// GetAll retrieves a paginated catalog listing, filtered by a case-insensitive
// substring match on title, author, or ISBN (an empty search term matches
// everything), sorted by title ascending.
//
// If requesterID is non-zero, each book is joined with that user's open loan
// on it, so the caller can see at a glance which books they currently hold.
// Pass requesterID = 0 for anonymous requests; the join then matches nothing.
// It uses a COUNT(*) OVER() window function so only one round-trip is needed.
func (m BookModel) GetAll(search string, requesterID int64, filters Filters) ([]*BookWithLoan, Metadata, error) {
	query := `
		SELECT count(*) OVER(),
		       b.book_id, b.title, b.author, b.isbn, b.description, b.cover_url,
		       b.total_copies, b.available_copies, b.created_at, b.updated_at,
		       l.loan_id, l.borrowed_at, l.due_date
		FROM books b
		LEFT JOIN loans l
		       ON l.book_id = b.book_id
		      AND l.user_id = $2
		      AND l.returned_at IS NULL
		WHERE $1 = ''
		   OR b.title  ILIKE '%' || $1 || '%'
		   OR b.author ILIKE '%' || $1 || '%'
		   OR b.isbn   ILIKE '%' || $1 || '%'
		ORDER BY b.title ASC, b.book_id ASC
		LIMIT $3 OFFSET $4`

	rows, err := m.DB.Query(query, search, requesterID, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	// Always close the result set when we are done to free the database connection.
	defer rows.Close()

	totalRecords := 0
	books := []*BookWithLoan{}

	for rows.Next() {
		var book BookWithLoan
		var loanID sql.NullInt64
		var borrowedAt, dueDate sql.NullTime

		err := rows.Scan(
			&totalRecords, // COUNT(*) OVER() – same value on every row
			&book.ID,
			&book.Title,
			&book.Author,
			&book.ISBN,
			&book.Description,
			&book.CoverURL,
			&book.TotalCopies,
			&book.AvailableCopies,
			&book.CreatedAt,
			&book.UpdatedAt,
			&loanID,
			&borrowedAt,
			&dueDate,
		)
		if err != nil {
			return nil, Metadata{}, err
		}

		// The LEFT JOIN columns are NULL unless the requester holds an open
		// loan on this book.
		if loanID.Valid {
			book.Loan = &LoanAnnotation{
				ID:         loanID.Int64,
				BorrowedAt: borrowedAt.Time,
				DueDate:    dueDate.Time,
			}
		}

		books = append(books, &book)
	}

	// Check for any error that occurred while iterating the rows.
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// Update saves the modified metadata fields of book back to the database.
// Copy counters are deliberately excluded: only the loan model mutates them.
// Returns ErrRecordNotFound if the book no longer exists, or ErrDuplicateISBN
// if the new ISBN collides with another book.
func (m BookModel) Update(book *Book) error {
	query := `
		UPDATE books
		SET title = $1, author = $2, isbn = $3, description = $4,
		    cover_url = $5, updated_at = CURRENT_TIMESTAMP
		WHERE book_id = $6
		RETURNING updated_at`

	args := []any{
		book.Title,
		book.Author,
		book.ISBN,
		book.Description,
		book.CoverURL,
		book.ID,
	}

	err := m.DB.QueryRow(query, args...).Scan(&book.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		case isUniqueViolation(err, "books_isbn_key"):
			return ErrDuplicateISBN
		default:
			return err
		}
	}
	return nil
}

// Delete removes the book with the given id, but only if no open loan
// references it. The open-loan check and the delete are a single conditional
// statement, so a borrow landing between "check" and "delete" is impossible.
// Returns ErrRecordNotFound if the book does not exist and
// ErrBookHasOpenLoans if it is still on loan.
func (m BookModel) Delete(id int64) error {
	// Guard against obviously bad IDs before touching the database.
	if id < 1 {
		return ErrRecordNotFound
	}

	query := `
		DELETE FROM books
		WHERE book_id = $1
		  AND NOT EXISTS (
		        SELECT 1 FROM loans
		        WHERE loans.book_id = $1 AND loans.returned_at IS NULL
		  )`

	result, err := m.DB.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Nothing was deleted: either the book never existed, or an open
		// loan blocked the delete. One follow-up read tells them apart.
		var exists bool
		err := m.DB.QueryRow(`SELECT EXISTS (SELECT 1 FROM books WHERE book_id = $1)`, id).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrBookHasOpenLoans
		}
		return ErrRecordNotFound
	}

	return nil
}
