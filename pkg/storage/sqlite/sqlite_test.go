package sqlite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}

func TestUserRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &auth.User{
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		Permissions:  auth.ParsePermissions("create_book,read_book"),
	}
	require.NoError(t, store.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	loaded, err := store.UserByUsername(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, user.ID, loaded.ID)
	assert.Equal(t, "$2a$10$hash", loaded.PasswordHash)
	assert.True(t, loaded.Permissions.Has("create_book"))
	assert.True(t, loaded.Permissions.Has("read_book"))
	assert.False(t, loaded.Permissions.Has("delete_book"))
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &auth.User{Username: "alice", PasswordHash: "h1", Permissions: auth.ParsePermissions("read_book")}
	require.NoError(t, store.CreateUser(ctx, first))

	second := &auth.User{Username: "alice", PasswordHash: "h2", Permissions: auth.ParsePermissions("read_book")}
	assert.ErrorIs(t, store.CreateUser(ctx, second), auth.ErrUsernameTaken)
}

func TestUserByUsername_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestBookRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	book := &catalog.Book{Title: "Dune", Author: "Herbert", ISBN: "978-0441013593"}
	require.NoError(t, store.CreateBook(ctx, book))
	require.NotZero(t, book.ID)

	byID, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", byID.Title)

	byISBN, err := store.BookByISBN(ctx, "978-0441013593")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byISBN.ID)
}

func TestCreateBook_DuplicateISBN(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBook(ctx, &catalog.Book{Title: "First", Author: "A", ISBN: "978-0441013593"}))

	err := store.CreateBook(ctx, &catalog.Book{Title: "Second", Author: "B", ISBN: "978-0441013593"})
	assert.ErrorIs(t, err, catalog.ErrDuplicateISBN)
}

func TestListAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBook(ctx, &catalog.Book{Title: "Dune", Author: "Herbert", ISBN: "978-0441013593"}))
	require.NoError(t, store.CreateBook(ctx, &catalog.Book{Title: "Dune Messiah", Author: "Herbert", ISBN: "978-0593098233"}))
	require.NoError(t, store.CreateBook(ctx, &catalog.Book{Title: "Foundation", Author: "Asimov", ISBN: "978-0553293357"}))

	all, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].ID < all[1].ID && all[1].ID < all[2].ID)

	byTitle, err := store.BooksByTitle(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "978-0441013593", byTitle[0].ISBN)

	byAuthor, err := store.BooksByAuthor(ctx, "Herbert")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	none, err := store.BooksByAuthor(ctx, "Clarke")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateBook(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	book := &catalog.Book{Title: "Dune", Author: "Herbert", ISBN: "978-0441013593"}
	require.NoError(t, store.CreateBook(ctx, book))

	book.Author = "Frank Herbert"
	require.NoError(t, store.UpdateBook(ctx, book))

	loaded, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", loaded.Author)
}

func TestUpdateBook_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateBook(context.Background(), &catalog.Book{
		ID: 42, Title: "Ghost", Author: "Nobody", ISBN: "978-0441013593",
	})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestUpdateBook_DuplicateISBN(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBook(ctx, &catalog.Book{Title: "Dune", Author: "Herbert", ISBN: "978-0441013593"}))
	second := &catalog.Book{Title: "Dune Messiah", Author: "Herbert", ISBN: "978-0593098233"}
	require.NoError(t, store.CreateBook(ctx, second))

	second.ISBN = "978-0441013593"
	assert.ErrorIs(t, store.UpdateBook(ctx, second), catalog.ErrDuplicateISBN)
}

func TestDeleteBook(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	book := &catalog.Book{Title: "Dune", Author: "Herbert", ISBN: "978-0441013593"}
	require.NoError(t, store.CreateBook(ctx, book))

	deleted, err := store.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", deleted.Title)
	assert.Equal(t, "978-0441013593", deleted.ISBN)

	_, err = store.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestDeleteBook_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.DeleteBook(context.Background(), 42)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

// Concurrent inserts of the same ISBN must produce exactly one winner; the
// UNIQUE constraint, not the service pre-check, is what guarantees this.
func TestCreateBook_ConcurrentSameISBN(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg       sync.WaitGroup
		created  atomic.Int64
		rejected atomic.Int64
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.CreateBook(ctx, &catalog.Book{
				Title: "Dune", Author: "Herbert", ISBN: "978-0441013593",
			})
			switch {
			case err == nil:
				created.Add(1)
			case assert.ErrorIs(t, err, catalog.ErrDuplicateISBN):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(workers-1), rejected.Load())

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}
