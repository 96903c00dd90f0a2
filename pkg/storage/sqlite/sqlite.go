// Package sqlite implements the storage contract on SQLite via mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/storage"
)

const backend = "sqlite"

// Store is a SQLite-backed user and book store
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// Open opens or creates the SQLite database at path. The special path
// ":memory:" opens an in-memory database; it gets a single connection so
// every query sees the same database. metrics may be nil.
func Open(path string, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &Store{db: db, metrics: metrics}, nil
}

// DB exposes the underlying connection for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the users and books tables if they do not exist.
// The UNIQUE constraints on username and isbn are authoritative; service
// pre-checks cannot close the write race on their own.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			isbn TEXT NOT NULL UNIQUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books (title)`,
		`CREATE INDEX IF NOT EXISTS idx_books_author ON books (author)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user; a username collision maps to ErrUsernameTaken
func (s *Store) CreateUser(ctx context.Context, user *auth.User) (err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "create_user", start, err) }()

	query := `INSERT INTO users (username, password_hash, permissions) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.PasswordHash, user.Permissions.String())
	if isUniqueViolation(err) {
		return auth.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	return nil
}

// UserByUsername looks up a user; missing rows map to ErrUserNotFound
func (s *Store) UserByUsername(ctx context.Context, username string) (_ *auth.User, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "user_by_username", start, err) }()

	var (
		user        auth.User
		permissions string
	)
	query := `SELECT id, username, password_hash, permissions FROM users WHERE username = ?`
	err = s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &permissions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Permissions = auth.ParsePermissions(permissions)
	return &user, nil
}

// CreateBook inserts a book; an ISBN collision maps to ErrDuplicateISBN
func (s *Store) CreateBook(ctx context.Context, book *catalog.Book) (err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "create_book", start, err) }()

	query := `INSERT INTO books (title, author, isbn) VALUES (?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, book.Title, book.Author, book.ISBN)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateISBN
	}
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	book.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new book id: %w", err)
	}
	return nil
}

// ListBooks returns every book ordered by ID
func (s *Store) ListBooks(ctx context.Context) (_ []catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "list_books", start, err) }()

	return s.queryBooks(ctx, `SELECT id, title, author, isbn FROM books ORDER BY id`)
}

// BooksByTitle returns exact-title matches ordered by ID
func (s *Store) BooksByTitle(ctx context.Context, title string) (_ []catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "books_by_title", start, err) }()

	return s.queryBooks(ctx, `SELECT id, title, author, isbn FROM books WHERE title = ? ORDER BY id`, title)
}

// BooksByAuthor returns exact-author matches ordered by ID
func (s *Store) BooksByAuthor(ctx context.Context, author string) (_ []catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "books_by_author", start, err) }()

	return s.queryBooks(ctx, `SELECT id, title, author, isbn FROM books WHERE author = ? ORDER BY id`, author)
}

// BookByISBN returns the book with the exact ISBN
func (s *Store) BookByISBN(ctx context.Context, isbn string) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "book_by_isbn", start, err) }()

	return s.queryBook(ctx, `SELECT id, title, author, isbn FROM books WHERE isbn = ?`, isbn)
}

// GetBook returns the book with the given ID
func (s *Store) GetBook(ctx context.Context, id int64) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "get_book", start, err) }()

	return s.queryBook(ctx, `SELECT id, title, author, isbn FROM books WHERE id = ?`, id)
}

// UpdateBook writes all fields under the book's ID
func (s *Store) UpdateBook(ctx context.Context, book *catalog.Book) (err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "update_book", start, err) }()

	query := `UPDATE books SET title = ?, author = ?, isbn = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, book.Title, book.Author, book.ISBN, book.ID)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateISBN
	}
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeleteBook removes the book and returns its last-known state. Read and
// delete run in one transaction so the returned state cannot be stale.
func (s *Store) DeleteBook(ctx context.Context, id int64) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "delete_book", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var book catalog.Book
	err = tx.QueryRowContext(ctx,
		`SELECT id, title, author, isbn FROM books WHERE id = ?`, id,
	).Scan(&book.ID, &book.Title, &book.Author, &book.ISBN)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return &book, nil
}

func (s *Store) queryBook(ctx context.Context, query string, args ...interface{}) (*catalog.Book, error) {
	var book catalog.Book
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&book.ID, &book.Title, &book.Author, &book.ISBN,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...interface{}) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []catalog.Book
	for rows.Next() {
		var book catalog.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.ISBN); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}
	return books, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint violation
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
