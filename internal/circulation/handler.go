// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"biblios/internal/inventory"
	"biblios/internal/ledger"
	"biblios/internal/patrons"
	"biblios/internal/workflow"
)

// Handler exposes the circulation service over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates an HTTP handler over the service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts every circulation endpoint. Routes under the authenticator
// require a bearer token; role checks live in the service, not here.
func (h *Handler) Routes(jwtSecret []byte) chi.Router {
	r := chi.NewRouter()

	r.Get("/books/search", h.search)
	r.Post("/signup", h.signup)

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(jwtSecret))

		r.Get("/users/me", h.profile)
		r.Post("/request-book/{bookID}", h.requestBook)
		r.Post("/user/return-request/{loanID}", h.requestReturn)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/books/add", h.addBook)
			r.Delete("/books/delete/{accNo}", h.deleteBook)
			r.Post("/requests/{requestID}/{decision}", h.decideRequest)
			r.Post("/issue-book", h.directIssue)
			r.Post("/approve-return/{loanID}", h.approveReturn)
			r.Get("/dashboard-stats", h.dashboardStats)
			r.Get("/users", h.listUsers)
			r.Delete("/users/{patronID}", h.deletePatron)
		})
	})

	return r
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if books == nil {
		books = []*inventory.Book{}
	}
	respondJSON(w, http.StatusOK, books)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var in patrons.Signup
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	patron, err := h.service.Signup(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, patron)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	profile, err := h.service.Profile(r.Context(), pr)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) requestBook(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	req, err := h.service.RequestBook(r.Context(), pr, bookID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	if err := h.service.RequestReturn(r.Context(), pr, loanID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "return requested"})
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	var in AddBookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	book, err := h.service.AddBook(r.Context(), pr, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBook(r.Context(), pr, chi.URLParam(r, "accNo")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	decision := workflow.Decision(chi.URLParam(r, "decision"))
	if decision != workflow.DecisionApprove && decision != workflow.DecisionReject {
		respondError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}
	loan, err := h.service.DecideRequest(r.Context(), pr, requestID, decision)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if loan == nil {
		respondJSON(w, http.StatusOK, map[string]string{"message": "request rejected"})
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (h *Handler) directIssue(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	var in struct {
		PatronEmail string `json:"student_email"`
		AccessionNo string `json:"book_acc_no"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	loan, err := h.service.DirectIssue(r.Context(), pr, in.PatronEmail, in.AccessionNo)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loan)
}

func (h *Handler) approveReturn(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	fine, err := h.service.ApproveReturn(r.Context(), pr, loanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"fine": fine})
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	stats, err := h.service.DashboardStats(r.Context(), pr)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	users, err := h.service.Users(r.Context(), pr)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) deletePatron(w http.ResponseWriter, r *http.Request) {
	pr, _ := PrincipalFromContext(r.Context())
	patronID, err := uuid.Parse(chi.URLParam(r, "patronID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patron id")
		return
	}
	if err := h.service.DeletePatron(r.Context(), pr, patronID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "patron deleted"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Invariant
// violations surface as 500s: they are bugs, not user errors.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, patrons.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ledger.ErrForbidden),
		errors.Is(err, patrons.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, inventory.ErrInsufficientCopies),
		errors.Is(err, inventory.ErrDuplicateAccession),
		errors.Is(err, inventory.ErrBookInUse),
		errors.Is(err, ledger.ErrDuplicateActiveLoan),
		errors.Is(err, workflow.ErrDuplicatePending),
		errors.Is(err, workflow.ErrTokenLimitExceeded),
		errors.Is(err, patrons.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, workflow.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidBook),
		errors.Is(err, patrons.ErrInvalidProfile):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, patrons.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
