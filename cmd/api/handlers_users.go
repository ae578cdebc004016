// cmd/api/handlers_users.go
// This file contains the HTTP request handlers for accounts and sessions:
// register, login, logout, and the caller's own identity.
package main

import (
	"errors"
	"net/http"

	"github.com/campuslms/library-api/internal/data"
	"github.com/campuslms/library-api/internal/validator"
)

// registerUserHandler handles POST /v1/users.
// It creates a regular (non-admin) account. Registering does not log the
// user in; the client follows up with POST /v1/sessions.
func (app *applicationDependencies) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := &data.User{
		Name:  input.Name,
		Email: input.Email,
	}

	// Hash before validating so ValidateUser can assert the hash is present.
	err = user.Password.Set(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateUser(v, user); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Users.Insert(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			app.conflictResponse(w, r, "a user with this email address already exists")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createSessionHandler handles POST /v1/sessions (login).
// On success it creates a session row and sets the HttpOnly session cookie.
// An unknown email and a wrong password produce the same 401, so the
// endpoint cannot be used to probe which addresses are registered.
func (app *applicationDependencies) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	data.ValidateEmail(v, input.Email)
	v.Check(input.Password != "", "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.GetByEmail(input.Email)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	match, err := user.Password.Matches(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.invalidCredentialsResponse(w, r)
		return
	}

	session, err := app.models.Sessions.New(user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   app.config.environment == "production",
		SameSite: http.SameSiteLaxMode,
	})

	err = app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteSessionHandler handles DELETE /v1/sessions (logout).
// It deletes the session row if one exists and clears the cookie either way,
// so logging out is idempotent and safe to call while already logged out.
func (app *applicationDependencies) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		if err := app.models.Sessions.Delete(cookie.Value); err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	// Expire the cookie on the client.
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "successfully logged out"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showCurrentUserHandler handles GET /v1/users/me.
// It returns the identity the authenticate middleware resolved for this request.
func (app *applicationDependencies) showCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user := app.contextGetUser(r)

	err := app.writeJSON(w, http.StatusOK, envelope{"user": user}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
