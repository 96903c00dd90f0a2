package catalog

import (
	"context"
	"errors"
)

// Book represents a catalog record
type Book struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// CreateRequest is the payload for creating a book
type CreateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// Patch carries a partial update: nil fields are left unchanged
type Patch struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	ISBN   *string `json:"isbn"`
}

// Store is the persistence contract for books. Implementations must back
// ISBN uniqueness with a store-level unique constraint and report a
// violation as ErrDuplicateISBN; a pre-check alone would race under
// concurrent writes.
type Store interface {
	// CreateBook inserts the book and fills in the store-assigned ID.
	CreateBook(ctx context.Context, book *Book) error

	// ListBooks returns every record ordered by ID.
	ListBooks(ctx context.Context) ([]Book, error)

	// BooksByTitle returns exact-title matches; empty result is not an error.
	BooksByTitle(ctx context.Context, title string) ([]Book, error)

	// BooksByAuthor returns exact-author matches; empty result is not an error.
	BooksByAuthor(ctx context.Context, author string) ([]Book, error)

	// BookByISBN returns ErrNotFound when no record has the ISBN.
	BookByISBN(ctx context.Context, isbn string) (*Book, error)

	// GetBook returns ErrNotFound when the ID does not exist.
	GetBook(ctx context.Context, id int64) (*Book, error)

	// UpdateBook writes all fields of the book under its ID inside a
	// transaction. Returns ErrNotFound for a missing ID and
	// ErrDuplicateISBN when the new ISBN collides with another record.
	UpdateBook(ctx context.Context, book *Book) error

	// DeleteBook removes the record and returns its last-known state, or
	// ErrNotFound.
	DeleteBook(ctx context.Context, id int64) (*Book, error)
}

var (
	// ErrNotFound is returned when a referenced book does not exist
	ErrNotFound = errors.New("book not found")

	// ErrDuplicateISBN is returned when a create or update would leave two
	// records sharing an ISBN
	ErrDuplicateISBN = errors.New("isbn already exists")
)
