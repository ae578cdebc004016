// cmd/api/context.go
// Identity is never ambient state: the authenticate middleware resolves the
// session cookie once per request and stores the resulting user in the
// request context, and handlers read it back from there.
package main

import (
	"context"
	"net/http"

	"github.com/campuslms/library-api/internal/data"
)

// contextKey is a private type so our context keys can never collide with
// keys set by other packages.
type contextKey string

// userContextKey is the key under which the resolved user is stored.
const userContextKey = contextKey("user")

// contextSetUser returns a copy of the request with user stored in its context.
func (app *applicationDependencies) contextSetUser(r *http.Request, user *data.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser retrieves the user from the request context. It panics if
// no user is present, because that means a handler was reached without
// passing through the authenticate middleware.
func (app *applicationDependencies) contextGetUser(r *http.Request) *data.User {
	user, ok := r.Context().Value(userContextKey).(*data.User)
	if !ok {
		panic("missing user value in request context")
	}
	return user
}
