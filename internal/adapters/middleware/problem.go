package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

// WriteProblem renders err as an RFC 7807 problem document.
func WriteProblem(w http.ResponseWriter, r *http.Request, err error) {
	problem := domain.NewProblemDetails(
		domain.AsDomainError(err),
		r.URL.Path,
		chimiddleware.GetReqID(r.Context()),
		time.Now(),
	)

	w.Header().Set("Content-Type", domain.ProblemContentType)
	w.WriteHeader(problem.Status)

	_ = json.NewEncoder(w).Encode(problem)
}

// NotFoundHandler answers unknown routes with a RES-001 problem.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, domain.NewNotFoundError("route", r.URL.Path))
}

func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, domain.NewDomainError(
		domain.CodeValidationFailed,
		r.Method+" is not allowed on "+r.URL.Path,
		http.StatusMethodNotAllowed,
		domain.ErrInvalidRequest,
	))
}
