package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

// Recoverer turns handler panics into SYS-001 problems.
func Recoverer(logger infrastructure.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := recordResponse(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error().
					Str("panic", fmt.Sprint(rec)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")

				// A started response can only be cut short.
				if rw.Written() {
					return
				}

				WriteProblem(rw, r, domain.NewInternalServerError("an unexpected error occurred", fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
