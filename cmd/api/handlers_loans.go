// cmd/api/handlers_loans.go
// This file contains the HTTP request handlers for the loan lifecycle.
// All three endpoints require an authenticated user (enforced in routes.go);
// the identity always comes from the request context, never from the body,
// so a user can only ever borrow and return for themselves.
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/campuslms/library-api/internal/data"
	"github.com/campuslms/library-api/internal/events"
)

// createLoanHandler handles POST /v1/loans.
// It reads {"book_id": ...} from the body and asks the loan model to borrow
// one copy for the caller. All consistency rules — availability, one open
// loan per (user, book), atomicity of the counter decrement and the loan
// insert — are enforced inside the model's single transaction.
func (app *applicationDependencies) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BookID int64 `json:"book_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.BookID < 1 {
		app.badRequestResponse(w, r, errors.New("book_id must be provided"))
		return
	}

	user := app.contextGetUser(r)

	loan, err := app.models.Loans.Borrow(user.ID, input.BookID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrNoCopiesAvailable):
			app.conflictResponse(w, r, "no copies of this book are currently available")
		case errors.Is(err, data.ErrDuplicateLoan):
			app.conflictResponse(w, r, "you have already borrowed this book")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.publishEvent(r, events.LoanCreated, envelope{
		"id":       loan.ID,
		"book_id":  loan.BookID,
		"user_id":  loan.UserID,
		"due_date": loan.DueDate,
	})

	err = app.writeJSON(w, http.StatusCreated, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listLoansHandler handles GET /v1/loans.
// It returns the caller's open loans joined with their book summaries,
// soonest due first, each annotated with the derived overdue flag and
// days-remaining count. Pure read.
func (app *applicationDependencies) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	user := app.contextGetUser(r)

	loans, err := app.models.Loans.GetAllOpenForUser(user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	// The overdue flag and day count are presentation values derived from
	// the due date at response time; they are never stored.
	now := time.Now()
	type loanView struct {
		*data.OpenLoan
		Overdue       bool `json:"overdue"`
		DaysRemaining int  `json:"days_remaining"`
	}

	views := make([]loanView, 0, len(loans))
	for _, loan := range loans {
		l := data.Loan{DueDate: loan.DueDate}
		views = append(views, loanView{
			OpenLoan:      loan,
			Overdue:       l.IsOverdue(now),
			DaysRemaining: l.DaysRemaining(now),
		})
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loans": views}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// returnLoanHandler handles POST /v1/loans/:id/return.
// It closes the caller's open loan with the given id and puts the copy back
// on the shelf, both in one transaction inside the model. A loan that is
// unknown, already returned, or owned by someone else responds 404 — the
// API does not reveal whether someone else's loan id exists.
func (app *applicationDependencies) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	user := app.contextGetUser(r)

	loan, err := app.models.Loans.Return(id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.publishEvent(r, events.LoanReturned, envelope{
		"id":      loan.ID,
		"book_id": loan.BookID,
		"user_id": loan.UserID,
	})

	err = app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
