// cmd/api/handlers_books.go
// This file contains all HTTP request handlers for the catalog resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger, database models, and event publisher.
package main

import (
	"errors"
	"net/http"

	"github.com/campuslms/library-api/internal/data"
	"github.com/campuslms/library-api/internal/events"
	"github.com/campuslms/library-api/internal/validator"
)

// listBooksHandler handles GET /v1/books.
// It returns every book whose title, author, or ISBN case-insensitively
// contains the ?search= term (an empty term returns the whole catalog),
// sorted by title. If the caller is logged in, each book carries the
// caller's own open loan on it, or null. No side effects.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	search := app.readString(qs, "search", "")

	filters := data.Filters{
		Page:     app.readInt(qs, "page", 1),
		PageSize: app.readInt(qs, "page_size", 50),
	}

	v := validator.New()
	v.Check(filters.Page > 0, "page", "must be greater than zero")
	v.Check(filters.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(filters.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(filters.PageSize <= 100, "page_size", "must be a maximum of 100")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Anonymous requests pass a zero requester id, which annotates nothing.
	user := app.contextGetUser(r)

	books, metadata, err := app.models.Books.GetAll(search, user.ID, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
// It parses the :id URL parameter and returns the matching book.
// Responds 404 if no book with that ID exists.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	// readIDParam extracts and validates the :id URL parameter.
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBookHandler handles POST /v1/books (admin only, enforced in routes.go).
// It reads a JSON body containing the new book's details, inserts a record
// with a full shelf (availableCopies = totalCopies), and responds with the
// created book and a 201 Created status.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title       string `json:"title"`
		Author      string `json:"author"`
		ISBN        string `json:"isbn"`
		Description string `json:"description"`
		CoverURL    string `json:"cover_url"`
		TotalCopies int    `json:"total_copies"`
	}

	// Decode the incoming JSON body using the safe readJSON helper.
	// readJSON enforces a 1MB limit, rejects unknown fields, and ensures a single value.
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// A library always owns at least one copy of a catalogued title.
	if input.TotalCopies < 1 {
		input.TotalCopies = 1
	}

	book := &data.Book{
		Title:       input.Title,
		Author:      input.Author,
		ISBN:        input.ISBN,
		Description: input.Description,
		CoverURL:    input.CoverURL,
		TotalCopies: input.TotalCopies,
	}

	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Persist the book to the database.
	// Insert() also writes the auto-generated ID and timestamps back into book.
	err = app.models.Books.Insert(book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateISBN):
			app.conflictResponse(w, r, "a book with this isbn already exists")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.publishEvent(r, events.BookCreated, envelope{"id": book.ID, "isbn": book.ISBN})

	// Respond with the fully-populated book and a 201 Created status.
	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id (admin only).
// It reads a partial JSON body, finds the existing book, applies only the
// non-nil metadata fields from the input, and saves the changes. Copy counts
// cannot be changed here; they belong to the loan lifecycle.
// Responds 404 if the book does not exist.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	// Parse and validate the :id URL parameter.
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// Every field is a pointer so we can distinguish between "not provided"
	// (nil) and "intentionally set to empty". Only non-nil fields are applied.
	var input struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		ISBN        *string `json:"isbn"`
		Description *string `json:"description"`
		CoverURL    *string `json:"cover_url"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.ISBN != nil {
		book.ISBN = *input.ISBN
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.CoverURL != nil {
		book.CoverURL = *input.CoverURL
	}

	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Persist the updated book back to the database.
	err = app.models.Books.Update(book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrDuplicateISBN):
			app.conflictResponse(w, r, "a book with this isbn already exists")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id (admin only).
// The open-loan check and the delete are a single conditional statement in
// the model, so a concurrent borrow cannot slip in between them.
// Responds 404 if the book does not exist and 409 if it is still on loan.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	// Parse and validate the :id URL parameter.
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.Books.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrBookHasOpenLoans):
			app.conflictResponse(w, r, "the book cannot be deleted while copies are on loan")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.publishEvent(r, events.BookDeleted, envelope{"id": id})

	// Respond with a success message.
	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
