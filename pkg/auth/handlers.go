package auth

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bibliod/bibliod/pkg/httputil"
	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/validation"
)

// Handlers provides the HTTP surface for registration and login
type Handlers struct {
	service *Service
}

// NewHandlers creates auth handlers backed by the service
func NewHandlers(service *Service) *Handlers {
	return &Handlers{
		service: service,
	}
}

// RegisterRoutes registers the public auth routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// Register handles POST /register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, err := h.service.Register(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, token)
}

// Login handles POST /login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, token)
}

// writeError maps service errors onto the HTTP contract. Duplicate usernames
// are 400, not 409; credential failures are 401 with a message that never
// reveals which part was wrong.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		httputil.WriteDetailedError(w, http.StatusBadRequest, "validation failed", verr.Details())
	case errors.Is(err, ErrUsernameTaken):
		httputil.WriteBadRequest(w, ErrUsernameTaken.Error())
	case errors.Is(err, ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, ErrInvalidCredentials.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("auth request failed")
		httputil.WriteInternalError(w, err)
	}
}
