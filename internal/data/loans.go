// internal/data/loans.go
// This file contains the loan lifecycle: borrowing and returning copies while
// keeping the book's available-copy counter consistent with the set of open
// loans. Every request may race with others against the same rows, so both
// mutations of a borrow or a return happen inside one transaction, and the
// availability precondition is checked by the database at the moment of the
// update, never by a separate read.
package data

import (
	"database/sql"
	"errors"
	"time"
)

// LoanPeriod is how long a copy may be kept. The due date is fixed at
// creation time and never recomputed.
const LoanPeriod = 28 * 24 * time.Hour

// Loan represents one borrowing of one copy of a book by one user.
// A loan is open while ReturnedAt is nil and closed once it is set; closing
// is one-way and terminal. Loans are never deleted — closed loans remain as
// the historical record.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	UserID     int64      `json:"user_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// IsOverdue reports whether the loan's due date has passed at the given time.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.DueDate.Before(now)
}

// DaysRemaining returns ceil((due date - now) / 24h): the number of days
// until the due date, rounded up, going negative once a loan is more than a
// day overdue. A loan due in 90 minutes has 1 day remaining.
func (l Loan) DaysRemaining(now time.Time) int {
	const day = 24 * time.Hour
	remaining := l.DueDate.Sub(now)
	days := remaining / day
	if remaining%day > 0 {
		days++
	}
	return int(days)
}

// BookSummary is the slice of a book joined onto each open loan in a
// listing: enough for the caller to render the loan without a second lookup.
type BookSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	CoverURL string `json:"cover_url,omitempty"`
}

// OpenLoan is an open loan joined with its book summary.
type OpenLoan struct {
	ID         int64       `json:"id"`
	BorrowedAt time.Time   `json:"borrowed_at"`
	DueDate    time.Time   `json:"due_date"`
	Book       BookSummary `json:"book"`
}

// LoanStore is the interface the handlers use for the loan lifecycle.
// LoanModel is the PostgreSQL implementation; tests substitute in-memory fakes
// honoring the same contract.
type LoanStore interface {
	// Borrow creates an open loan for (userID, bookID) and takes one copy
	// off the shelf, as a single atomic unit. It returns ErrRecordNotFound
	// if the book does not exist, ErrNoCopiesAvailable if no copy is free,
	// and ErrDuplicateLoan if the user already holds an open loan on the
	// book. Of N concurrent calls for the last remaining copy, at most one
	// succeeds.
	Borrow(userID, bookID int64) (*Loan, error)

	// Return closes the open loan with the given id and puts the copy back
	// on the shelf, as a single atomic unit. It returns ErrRecordNotFound
	// if no open loan with this id belongs to userID — unknown, already
	// returned, and not-owned all look the same to the caller.
	Return(loanID, userID int64) (*Loan, error)

	// GetAllOpenForUser lists the user's open loans joined with their book
	// summaries, soonest due first.
	GetAllOpenForUser(userID int64) ([]*OpenLoan, error)
}

// LoanModel wraps a *sql.DB connection and provides the loan lifecycle
// operations.
type LoanModel struct {
	DB *sql.DB // Shared database connection pool
}

// Borrow implements the borrow half of the loan state machine:
//
//	{nonexistent} --Borrow--> Open
//
// Both mutations run in one transaction. The copy-counter decrement carries
// its own precondition (available_copies > 0), so the database arbitrates
// races for the last copy: the losing request updates zero rows. The partial
// unique index over open (user_id, book_id) pairs arbitrates duplicate
// borrows by the same user; a violation aborts the transaction and rolls the
// decrement back with it.
func (m LoanModel) Borrow(userID, bookID int64) (*Loan, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	// Take one copy off the shelf, but only if one is actually there. This
	// is the conditional atomic update: never read-then-write.
	result, err := tx.Exec(`
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		WHERE book_id = $1 AND available_copies > 0`,
		bookID,
	)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		// No copy was taken: the book is either unknown or out of copies.
		var exists bool
		err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM books WHERE book_id = $1)`, bookID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrRecordNotFound
		}
		return nil, ErrNoCopiesAvailable
	}

	// Insert the open loan. The due date is computed by the database from
	// the same timestamp as borrowed_at, so the two are always exactly 28
	// days apart.
	loan := &Loan{BookID: bookID, UserID: userID}
	err = tx.QueryRow(`
		INSERT INTO loans (book_id, user_id, borrowed_at, due_date)
		VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP + INTERVAL '28 days')
		RETURNING loan_id, borrowed_at, due_date`,
		bookID, userID,
	).Scan(&loan.ID, &loan.BorrowedAt, &loan.DueDate)
	if err != nil {
		if isUniqueViolation(err, "loans_one_open_per_user_book_idx") {
			return nil, ErrDuplicateLoan
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return loan, nil
}

// Return implements the closing half of the loan state machine:
//
//	Open --Return--> Returned (terminal)
//
// The close carries its own preconditions (still open, owned by userID), so
// a second return of the same loan updates zero rows and fails with
// ErrRecordNotFound. The copy-counter increment is capped at total_copies;
// with the decrement-on-borrow discipline the cap never actually binds, but
// it keeps the invariant safe against a manually shrunk total_copies.
func (m LoanModel) Return(loanID, userID int64) (*Loan, error) {
	if loanID < 1 {
		return nil, ErrRecordNotFound
	}

	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan Loan
	var returnedAt time.Time
	err = tx.QueryRow(`
		UPDATE loans
		SET returned_at = CURRENT_TIMESTAMP
		WHERE loan_id = $1 AND user_id = $2 AND returned_at IS NULL
		RETURNING loan_id, book_id, user_id, borrowed_at, due_date, returned_at`,
		loanID, userID,
	).Scan(&loan.ID, &loan.BookID, &loan.UserID, &loan.BorrowedAt, &loan.DueDate, &returnedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	loan.ReturnedAt = &returnedAt

	// Put the copy back on the shelf.
	_, err = tx.Exec(`
		UPDATE books
		SET available_copies = LEAST(available_copies + 1, total_copies),
		    updated_at = CURRENT_TIMESTAMP
		WHERE book_id = $1`,
		loan.BookID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetAllOpenForUser retrieves all of the user's open loans joined with their
// book summaries, sorted by due date ascending so the most urgent return is
// first. Pure read, no side effects.
func (m LoanModel) GetAllOpenForUser(userID int64) ([]*OpenLoan, error) {
	query := `
		SELECT l.loan_id, l.borrowed_at, l.due_date,
		       b.book_id, b.title, b.author, b.isbn, b.cover_url
		FROM loans l
		INNER JOIN books b ON b.book_id = l.book_id
		WHERE l.user_id = $1 AND l.returned_at IS NULL
		ORDER BY l.due_date ASC, l.loan_id ASC`

	rows, err := m.DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []*OpenLoan{}

	for rows.Next() {
		var loan OpenLoan
		err := rows.Scan(
			&loan.ID,
			&loan.BorrowedAt,
			&loan.DueDate,
			&loan.Book.ID,
			&loan.Book.Title,
			&loan.Book.Author,
			&loan.Book.ISBN,
			&loan.Book.CoverURL,
		)
		if err != nil {
			return nil, err
		}
		loans = append(loans, &loan)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}
