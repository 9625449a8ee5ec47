package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type (
	// RequestValidatorOptions tunes OapiRequestValidatorWithOptions.
	RequestValidatorOptions struct {
		Options               openapi3filter.Options
		ErrorHandler          func(w http.ResponseWriter, r *http.Request, err error)
		SilenceServersWarning bool
		// Skipper bypasses validation for matching requests.
		Skipper func(r *http.Request) bool
	}
)

// OapiRequestValidatorWithOptions validates requests against the OpenAPI document.
// Requests that match no operation are left to the router.
func OapiRequestValidatorWithOptions(
	logger infrastructure.Logger,
	swagger *openapi3.T,
	options *RequestValidatorOptions,
) (func(http.Handler) http.Handler, error) {
	if options == nil {
		options = &RequestValidatorOptions{}
	}

	if len(swagger.Servers) > 0 && !options.SilenceServersWarning {
		logger.Warn().Msg("OpenAPI servers are set, requests must match one of them to be validated")
	}

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, err
	}

	if options.Options.AuthenticationFunc == nil {
		options.Options.AuthenticationFunc = openapi3filter.NoopAuthenticationFunc
	}

	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = RequestValidationErrHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if options.Skipper != nil && options.Skipper(r) {
				next.ServeHTTP(w, r)

				return
			}

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
					logger.Debug().Err(err).Str("path", r.URL.Path).Msg("failed to match OpenAPI route")
				}

				next.ServeHTTP(w, r)

				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    &options.Options,
			}

			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				errorHandler(w, r, err)

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// SkipPathPrefixes builds a Skipper for RequestValidatorOptions.
func SkipPathPrefixes(prefixes ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				return true
			}
		}

		return false
	}
}

// RequestValidationErrHandler maps OpenAPI validation failures to VAL problems.
func RequestValidationErrHandler(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, r, requestValidationError(err))
}

func requestValidationError(err error) error {
	var parseErr *openapi3filter.ParseError
	if errors.As(err, &parseErr) {
		return domain.NewMalformedBodyError(err)
	}

	var securityErr *openapi3filter.SecurityRequirementsError
	if errors.As(err, &securityErr) {
		return domain.NewUnauthorizedError("missing credentials")
	}

	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return domain.NewValidationError(err.Error())
	}

	var schemaErr *openapi3.SchemaError
	hasSchemaErr := errors.As(err, &schemaErr)

	if reqErr.Parameter != nil {
		return domain.NewValidationError("invalid request parameter", domain.FieldError{
			Field:   reqErr.Parameter.Name,
			Message: validationMessage(reqErr, schemaErr),
		})
	}

	if !hasSchemaErr {
		return domain.NewMalformedBodyError(err)
	}

	field := strings.Join(schemaErr.JSONPointer(), ".")
	if field == "" {
		field = "body"
	}

	return domain.NewValidationError("request body failed validation", domain.FieldError{
		Field:   field,
		Message: validationMessage(reqErr, schemaErr),
	})
}

func validationMessage(reqErr *openapi3filter.RequestError, schemaErr *openapi3.SchemaError) string {
	if schemaErr != nil && schemaErr.Reason != "" {
		return schemaErr.Reason
	}

	if reqErr.Reason != "" {
		return reqErr.Reason
	}

	return reqErr.Error()
}
