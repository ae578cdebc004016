// cmd/api/testutils_test.go
// Test scaffolding: an in-memory implementation of the model interfaces and
// a helper for driving requests through the full middleware chain. The fake
// honors the same contract as the PostgreSQL models — one lock spans both
// mutations of a borrow or return, so the concurrency scenarios are
// meaningful here too.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/campuslms/library-api/internal/data"
)

// memoryStore implements BookStore, LoanStore, UserStore, and SessionStore
// over plain maps guarded by a single mutex.
type memoryStore struct {
	mu       sync.Mutex
	books    map[int64]*data.Book
	loans    map[int64]*data.Loan
	users    map[int64]*data.User
	sessions map[string]int64
	nextID   int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		books:    make(map[int64]*data.Book),
		loans:    make(map[int64]*data.Loan),
		users:    make(map[int64]*data.User),
		sessions: make(map[string]int64),
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- BookStore ---

func (s *memoryStore) Insert(book *data.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ISBN == book.ISBN {
			return data.ErrDuplicateISBN
		}
	}
	book.ID = s.id()
	book.AvailableCopies = book.TotalCopies
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	clone := *book
	s.books[book.ID] = &clone
	return nil
}

func (s *memoryStore) Get(id int64) (*data.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *memoryStore) GetAll(search string, requesterID int64, filters data.Filters) ([]*data.BookWithLoan, data.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(search)
	out := []*data.BookWithLoan{}
	for _, b := range s.books {
		if term != "" &&
			!strings.Contains(strings.ToLower(b.Title), term) &&
			!strings.Contains(strings.ToLower(b.Author), term) &&
			!strings.Contains(strings.ToLower(b.ISBN), term) {
			continue
		}
		entry := &data.BookWithLoan{Book: *b}
		for _, l := range s.loans {
			if l.BookID == b.ID && l.UserID == requesterID && l.ReturnedAt == nil {
				entry.Loan = &data.LoanAnnotation{ID: l.ID, BorrowedAt: l.BorrowedAt, DueDate: l.DueDate}
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, data.Metadata{TotalRecords: len(out)}, nil
}

func (s *memoryStore) Update(book *data.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.books[book.ID]
	if !ok {
		return data.ErrRecordNotFound
	}
	for _, b := range s.books {
		if b.ID != book.ID && b.ISBN == book.ISBN {
			return data.ErrDuplicateISBN
		}
	}
	stored.Title = book.Title
	stored.Author = book.Author
	stored.ISBN = book.ISBN
	stored.Description = book.Description
	stored.CoverURL = book.CoverURL
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *memoryStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return data.ErrRecordNotFound
	}
	for _, l := range s.loans {
		if l.BookID == id && l.ReturnedAt == nil {
			return data.ErrBookHasOpenLoans
		}
	}
	delete(s.books, id)
	return nil
}

// --- LoanStore ---

func (s *memoryStore) Borrow(userID, bookID int64) (*data.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	if book.AvailableCopies <= 0 {
		return nil, data.ErrNoCopiesAvailable
	}
	for _, l := range s.loans {
		if l.UserID == userID && l.BookID == bookID && l.ReturnedAt == nil {
			return nil, data.ErrDuplicateLoan
		}
	}

	now := time.Now()
	loan := &data.Loan{
		ID:         s.id(),
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueDate:    now.Add(data.LoanPeriod),
	}
	book.AvailableCopies--
	s.loans[loan.ID] = loan
	clone := *loan
	return &clone, nil
}

func (s *memoryStore) Return(loanID, userID int64) (*data.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok || loan.UserID != userID || loan.ReturnedAt != nil {
		return nil, data.ErrRecordNotFound
	}

	now := time.Now()
	loan.ReturnedAt = &now
	if book, ok := s.books[loan.BookID]; ok && book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
	}
	clone := *loan
	return &clone, nil
}

func (s *memoryStore) GetAllOpenForUser(userID int64) ([]*data.OpenLoan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*data.OpenLoan{}
	for _, l := range s.loans {
		if l.UserID != userID || l.ReturnedAt != nil {
			continue
		}
		book := s.books[l.BookID]
		out = append(out, &data.OpenLoan{
			ID:         l.ID,
			BorrowedAt: l.BorrowedAt,
			DueDate:    l.DueDate,
			Book: data.BookSummary{
				ID:       book.ID,
				Title:    book.Title,
				Author:   book.Author,
				ISBN:     book.ISBN,
				CoverURL: book.CoverURL,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// --- UserStore ---

func (s *memoryStore) InsertUser(user *data.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return data.ErrDuplicateEmail
		}
	}
	user.ID = s.id()
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

func (s *memoryStore) GetByEmail(email string) (*data.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *memoryStore) GetUserByID(id int64) (*data.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return u, nil
}

// --- SessionStore ---

func (s *memoryStore) New(userID int64) (*data.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &data.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(data.SessionDuration),
		CreatedAt: time.Now(),
	}
	s.sessions[session.Token] = userID
	return session, nil
}

func (s *memoryStore) GetUser(token string) (*data.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.sessions[token]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return user, nil
}

func (s *memoryStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// userAdapter and sessionAdapter bridge the method-name clashes between the
// four interfaces implemented on one struct.
type userAdapter struct{ *memoryStore }

func (a userAdapter) Insert(user *data.User) error     { return a.InsertUser(user) }
func (a userAdapter) Get(id int64) (*data.User, error) { return a.GetUserByID(id) }

type sessionAdapter struct{ *memoryStore }

func (a sessionAdapter) Delete(token string) error { return a.DeleteSession(token) }

// testApp bundles an application instance with its backing store and helpers
// for making requests.
type testApp struct {
	app     *applicationDependencies
	store   *memoryStore
	handler http.Handler
	reqSeq  atomic.Int64
}

func newTestApp() *testApp {
	store := newMemoryStore()
	app := &applicationDependencies{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: data.Models{
			Books:    store,
			Loans:    store,
			Users:    userAdapter{store},
			Sessions: sessionAdapter{store},
		},
	}
	return &testApp{app: app, store: store, handler: app.routes()}
}

// seedUser creates a user directly in the store and returns it together with
// a session cookie for making authenticated requests.
func (ta *testApp) seedUser(name, email, plaintext string, isAdmin bool) (*data.User, *http.Cookie) {
	user := &data.User{Name: name, Email: email, IsAdmin: isAdmin}
	if err := user.Password.Set(plaintext); err != nil {
		panic(err)
	}
	if err := ta.store.InsertUser(user); err != nil {
		panic(err)
	}
	session, err := ta.store.New(user.ID)
	if err != nil {
		panic(err)
	}
	return user, &http.Cookie{Name: sessionCookieName, Value: session.Token}
}

// seedBook creates a book directly in the store.
func (ta *testApp) seedBook(title, author, isbn string, totalCopies int) *data.Book {
	book := &data.Book{Title: title, Author: author, ISBN: isbn, TotalCopies: totalCopies}
	if err := ta.store.Insert(book); err != nil {
		panic(err)
	}
	return book
}

// do sends a request through the full middleware chain and returns the
// recorder. Each request gets a distinct client IP so the per-IP rate
// limiter never throttles a test.
func (ta *testApp) do(method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(js)
	}

	r := httptest.NewRequest(method, target, reader)
	n := ta.reqSeq.Add(1)
	r.RemoteAddr = fmt.Sprintf("10.1.%d.%d:4321", n/200, n%200+1)
	if cookie != nil {
		r.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, r)
	return w
}

// itoa formats an int64 for use in a URL path.
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// decode unmarshals a recorded JSON response body into a generic map.
func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		panic(err)
	}
	return out
}
