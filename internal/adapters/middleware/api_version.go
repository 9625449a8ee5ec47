package middleware

import (
	"net/http"
)

const (
	apiVersionHeader     = "API-Version"
	serviceVersionHeader = "X-Service-Version"
)

// APIVersionMiddleware stamps every response with the API and build versions.
type APIVersionMiddleware struct {
	apiVersion     string
	serviceVersion string
}

func NewAPIVersionMiddleware(apiVersion, serviceVersion string) APIVersionMiddleware {
	return APIVersionMiddleware{
		apiVersion:     apiVersion,
		serviceVersion: serviceVersion,
	}
}

func (mw APIVersionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(apiVersionHeader, mw.apiVersion)

		if mw.serviceVersion != "" {
			w.Header().Set(serviceVersionHeader, mw.serviceVersion)
		}

		next.ServeHTTP(w, r)
	})
}
