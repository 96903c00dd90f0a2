package catalog

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/httputil"
	"github.com/bibliod/bibliod/pkg/middleware"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/validation"
)

// Handlers provides the HTTP surface for the catalog API
type Handlers struct {
	service *Service
}

// NewHandlers creates catalog handlers backed by the service
func NewHandlers(service *Service) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers the catalog routes. Reads are public; mutations
// require a bearer token, and create/delete additionally require the
// matching capability.
func (h *Handlers) RegisterRoutes(r *mux.Router, authn *middleware.Auth) {
	r.HandleFunc("/books", h.List).Methods("GET")
	r.HandleFunc("/books/name/{name}", h.ByTitle).Methods("GET")
	r.HandleFunc("/books/isbn/{isbn}", h.ByISBN).Methods("GET")
	r.HandleFunc("/books/author/{author}", h.ByAuthor).Methods("GET")

	r.Handle("/books",
		authn.Handler(middleware.RequirePermission(auth.PermCreateBook)(http.HandlerFunc(h.Create)))).
		Methods("POST")
	r.Handle("/books/{id}",
		authn.Handler(http.HandlerFunc(h.Update))).
		Methods("PUT")
	r.Handle("/books/{id}",
		authn.Handler(middleware.RequirePermission(auth.PermDeleteBook)(http.HandlerFunc(h.Delete)))).
		Methods("DELETE")
}

// Create handles POST /books
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	book, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, book)
}

// List handles GET /books
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if books == nil {
		books = []Book{}
	}
	httputil.WriteSuccess(w, books)
}

// ByTitle handles GET /books/name/{name}
func (h *Handlers) ByTitle(w http.ResponseWriter, r *http.Request) {
	title := httputil.GetPathVars(r)["name"]

	books, err := h.service.ByTitle(r.Context(), title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if books == nil {
		books = []Book{}
	}
	httputil.WriteSuccess(w, books)
}

// ByAuthor handles GET /books/author/{author}
func (h *Handlers) ByAuthor(w http.ResponseWriter, r *http.Request) {
	author := httputil.GetPathVars(r)["author"]

	books, err := h.service.ByAuthor(r.Context(), author)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if books == nil {
		books = []Book{}
	}
	httputil.WriteSuccess(w, books)
}

// ByISBN handles GET /books/isbn/{isbn}
func (h *Handlers) ByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := httputil.GetPathVars(r)["isbn"]

	book, err := h.service.ByISBN(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, book)
}

// Update handles PUT /books/{id}. The body carries partial fields; absent
// fields keep their current values.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var patch Patch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	book, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, book)
}

// Delete handles DELETE /books/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	book, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, book)
}

// writeError maps service errors onto the HTTP contract: duplicate ISBNs
// are 400, not 409, missing books are 404, and anything unexpected is
// logged and returned as a generic 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		httputil.WriteDetailedError(w, http.StatusBadRequest, "validation failed", verr.Details())
	case errors.Is(err, ErrDuplicateISBN):
		httputil.WriteBadRequest(w, ErrDuplicateISBN.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, ErrNotFound.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("catalog request failed")
		httputil.WriteInternalError(w, err)
	}
}
