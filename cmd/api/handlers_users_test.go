// cmd/api/handlers_users_test.go
package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	t.Run("valid registration creates a non-admin account", func(t *testing.T) {
		ta := newTestApp()

		body := map[string]any{"name": "Alice", "email": "alice@example.com", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/users", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		user := decode(w)["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, false, user["is_admin"])
		assert.NotContains(t, w.Body.String(), "pa55word99")
	})

	t.Run("short password fails validation", func(t *testing.T) {
		ta := newTestApp()

		body := map[string]any{"name": "Alice", "email": "alice@example.com", "password": "short"}
		w := ta.do(http.MethodPost, "/v1/users", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decode(w)["error"].(map[string]any), "password")
	})

	t.Run("malformed email fails validation", func(t *testing.T) {
		ta := newTestApp()

		body := map[string]any{"name": "Alice", "email": "not-an-email", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/users", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decode(w)["error"].(map[string]any), "email")
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		ta := newTestApp()
		ta.seedUser("Alice", "alice@example.com", "pa55word99", false)

		body := map[string]any{"name": "Other Alice", "email": "alice@example.com", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/users", body, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSessions(t *testing.T) {
	t.Run("login sets the session cookie", func(t *testing.T) {
		ta := newTestApp()
		ta.seedUser("Alice", "alice@example.com", "pa55word99", false)

		body := map[string]any{"email": "alice@example.com", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/sessions", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("login cookie authenticates subsequent requests", func(t *testing.T) {
		ta := newTestApp()
		ta.seedUser("Alice", "alice@example.com", "pa55word99", false)

		body := map[string]any{"email": "alice@example.com", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/sessions", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		cookie := w.Result().Cookies()[0]

		w = ta.do(http.MethodGet, "/v1/users/me", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice@example.com", decode(w)["user"].(map[string]any)["email"])
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		ta := newTestApp()
		ta.seedUser("Alice", "alice@example.com", "pa55word99", false)

		body := map[string]any{"email": "alice@example.com", "password": "wrong-password"}
		w := ta.do(http.MethodPost, "/v1/sessions", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email is the same 401 as a wrong password", func(t *testing.T) {
		ta := newTestApp()

		body := map[string]any{"email": "nobody@example.com", "password": "pa55word99"}
		w := ta.do(http.MethodPost, "/v1/sessions", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		ta := newTestApp()
		_, cookie := ta.seedUser("Alice", "alice@example.com", "pa55word99", false)

		w := ta.do(http.MethodDelete, "/v1/sessions", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		// The token no longer resolves; the request is anonymous again.
		w = ta.do(http.MethodGet, "/v1/users/me", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("a stale cookie is treated as anonymous, not an error", func(t *testing.T) {
		ta := newTestApp()
		stale := &http.Cookie{Name: sessionCookieName, Value: "no-such-token"}

		w := ta.do(http.MethodGet, "/v1/books", nil, stale)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
