package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/validation"
)

// Service provides validated catalog operations over a Store
type Service struct {
	store   Store
	metrics *observability.Metrics
}

// NewService creates a catalog service. metrics may be nil.
func NewService(store Store, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
	}
}

// Create validates the payload and inserts a new book. A duplicate ISBN
// yields ErrDuplicateISBN whether it is caught by the pre-check or by the
// store's unique constraint.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Book, error) {
	v := validation.New()
	v.StringLength("title", req.Title, 1, 200)
	v.StringLength("author", req.Author, 1, 100)
	v.StringLength("isbn", req.ISBN, 10, 17)
	v.ISBN("isbn", req.ISBN)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.store.BookByISBN(ctx, req.ISBN); err == nil {
		return nil, ErrDuplicateISBN
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check isbn: %w", err)
	}

	book := &Book{
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BooksTotal.Inc()
	}
	return book, nil
}

// List returns every book in the catalog
func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.store.ListBooks(ctx)
}

// ByTitle returns books whose title matches exactly
func (s *Service) ByTitle(ctx context.Context, title string) ([]Book, error) {
	return s.store.BooksByTitle(ctx, title)
}

// ByAuthor returns books whose author matches exactly
func (s *Service) ByAuthor(ctx context.Context, author string) ([]Book, error) {
	return s.store.BooksByAuthor(ctx, author)
}

// ByISBN returns the book with the exact ISBN, or ErrNotFound
func (s *Service) ByISBN(ctx context.Context, isbn string) (*Book, error) {
	return s.store.BookByISBN(ctx, isbn)
}

// Update applies a partial update: only non-nil patch fields change. When
// the patch changes the ISBN, uniqueness is re-checked against all other
// records; setting a book's ISBN to its own current value is not a conflict.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Book, error) {
	v := validation.New()
	if patch.Title != nil {
		v.StringLength("title", *patch.Title, 1, 200)
	}
	if patch.Author != nil {
		v.StringLength("author", *patch.Author, 1, 100)
	}
	if patch.ISBN != nil {
		v.StringLength("isbn", *patch.ISBN, 10, 17)
		v.ISBN("isbn", *patch.ISBN)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		book.Title = *patch.Title
	}
	if patch.Author != nil {
		book.Author = *patch.Author
	}
	if patch.ISBN != nil && *patch.ISBN != book.ISBN {
		existing, err := s.store.BookByISBN(ctx, *patch.ISBN)
		if err == nil && existing.ID != id {
			return nil, ErrDuplicateISBN
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to check isbn: %w", err)
		}
		book.ISBN = *patch.ISBN
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes the book and returns its last-known state for
// confirmation display
func (s *Service) Delete(ctx context.Context, id int64) (*Book, error) {
	book, err := s.store.DeleteBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BooksTotal.Dec()
	}
	return book, nil
}
