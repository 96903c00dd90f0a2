// Package postgres implements the storage contract on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/config"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/storage"
)

const backend = "postgres"

// Store is a PostgreSQL-backed user and book store
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// Open connects to PostgreSQL, configures the connection pool, and verifies
// the connection with a ping. metrics may be nil.
func Open(cfg config.StorageConfig, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{db: db, metrics: metrics}, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

// DB exposes the underlying connection for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the users and books tables if they do not exist.
// Username and ISBN uniqueness is enforced here; the services' pre-checks
// only improve error messages, this constraint is what closes the race.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id BIGSERIAL PRIMARY KEY,
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

	query := `
		INSERT INTO users (username, password_hash, permissions)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, user.Permissions.String(),
	).Scan(&user.ID)
	if isUniqueViolation(err) {
		return auth.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
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
	query := `SELECT id, username, password_hash, permissions FROM users WHERE username = $1`
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

	query := `
		INSERT INTO books (title, author, isbn)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query, book.Title, book.Author, book.ISBN).Scan(&book.ID)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateISBN
	}
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
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

	return s.queryBooks(ctx, `SELECT id, title, author, isbn FROM books WHERE title = $1 ORDER BY id`, title)
}

// BooksByAuthor returns exact-author matches ordered by ID
func (s *Store) BooksByAuthor(ctx context.Context, author string) (_ []catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "books_by_author", start, err) }()

	return s.queryBooks(ctx, `SELECT id, title, author, isbn FROM books WHERE author = $1 ORDER BY id`, author)
}

// BookByISBN returns the book with the exact ISBN
func (s *Store) BookByISBN(ctx context.Context, isbn string) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "book_by_isbn", start, err) }()

	return s.queryBook(ctx, `SELECT id, title, author, isbn FROM books WHERE isbn = $1`, isbn)
}

// GetBook returns the book with the given ID
func (s *Store) GetBook(ctx context.Context, id int64) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "get_book", start, err) }()

	return s.queryBook(ctx, `SELECT id, title, author, isbn FROM books WHERE id = $1`, id)
}

// UpdateBook writes all fields under the book's ID
func (s *Store) UpdateBook(ctx context.Context, book *catalog.Book) (err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "update_book", start, err) }()

	query := `UPDATE books SET title = $1, author = $2, isbn = $3 WHERE id = $4`
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

// DeleteBook removes the book and returns its last-known state
func (s *Store) DeleteBook(ctx context.Context, id int64) (_ *catalog.Book, err error) {
	start := time.Now()
	defer func() { storage.Observe(s.metrics, backend, "delete_book", start, err) }()

	var book catalog.Book
	query := `DELETE FROM books WHERE id = $1 RETURNING id, title, author, isbn`
	err = s.db.QueryRowContext(ctx, query, id).Scan(&book.ID, &book.Title, &book.Author, &book.ISBN)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
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

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
