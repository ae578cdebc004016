// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the application middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → enableCORS → rateLimit → authenticate → router
//
// Current endpoints:
//
//	GET    /v1/books               – list/search the catalog (loan-annotated when authenticated)
//	GET    /v1/books/:id           – retrieve a single book by ID
//	POST   /v1/books               – create a new book (admin)
//	PATCH  /v1/books/:id           – update book metadata (admin)
//	DELETE /v1/books/:id           – delete a book with no open loans (admin)
//	POST   /v1/loans               – borrow a book (authenticated)
//	GET    /v1/loans               – the caller's open loans (authenticated)
//	POST   /v1/loans/:id/return    – return a borrowed book (authenticated, owner only)
//	POST   /v1/users               – register a new user account
//	GET    /v1/users/me            – the caller's own identity (authenticated)
//	POST   /v1/sessions            – log in (sets the session cookie)
//	DELETE /v1/sessions            – log out (clears the session cookie)
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	// Catalog routes. Reads are public; mutations are admin only.
	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", app.requireAdmin(app.createBookHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.requireAdmin(app.updateBookHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.requireAdmin(app.deleteBookHandler))

	// Loan routes, all requiring a logged-in user.
	router.HandlerFunc(http.MethodPost, "/v1/loans", app.requireAuthenticated(app.createLoanHandler))
	router.HandlerFunc(http.MethodGet, "/v1/loans", app.requireAuthenticated(app.listLoansHandler))
	router.HandlerFunc(http.MethodPost, "/v1/loans/:id/return", app.requireAuthenticated(app.returnLoanHandler))

	// Account routes.
	router.HandlerFunc(http.MethodPost, "/v1/users", app.registerUserHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users/me", app.requireAuthenticated(app.showCurrentUserHandler))
	router.HandlerFunc(http.MethodPost, "/v1/sessions", app.createSessionHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/sessions", app.deleteSessionHandler)

	// Wrap with middleware: recoverPanic is outermost so it catches panics
	// from every other layer; authenticate is innermost so every handler
	// sees a resolved user in the request context.
	return app.recoverPanic(app.enableCORS(app.rateLimit(app.authenticate(router))))
}
