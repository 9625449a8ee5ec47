package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/middleware"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/usecases"
)

const (
	maxRequestBodyBytes = 1 << 20
	jsonContentType     = "application/json"
)

var _ handlers.ServerInterface = (*RequestHandler)(nil)

type RequestHandler struct {
	app       *usecases.WebApplication
	logger    infrastructure.Logger
	validator *validator.Validate
}

func NewRequestHandler(
	app *usecases.WebApplication,
	logger infrastructure.Logger,
) *RequestHandler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &RequestHandler{
		app:       app,
		logger:    logger.Component("request_handler"),
		validator: validate,
	}
}

// decodeBody reads a JSON body into dest and validates it.
func (h *RequestHandler) decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))

	if err := decoder.Decode(dest); err != nil {
		return domain.NewMalformedBodyError(err)
	}

	return h.validate(dest)
}

// decodeOptionalBody is decodeBody for operations whose body may be omitted.
func (h *RequestHandler) decodeOptionalBody(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))

	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		return domain.NewMalformedBodyError(err)
	}

	return h.validate(dest)
}

func (h *RequestHandler) readRawBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		return nil, domain.NewMalformedBodyError(err)
	}

	return body, nil
}

func (h *RequestHandler) validate(dest any) error {
	err := h.validator.Struct(dest)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domain.NewValidationError(err.Error())
	}

	fields := make([]domain.FieldError, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, domain.FieldError{
			Field:   fieldPath(fieldErr),
			Message: validationMessage(fieldErr),
		})
	}

	return domain.NewValidationError("request failed validation", fields...)
}

// fieldPath drops the struct name from the namespace, "CreateOrderRequest.client_email" becomes "client_email".
func fieldPath(fieldErr validator.FieldError) string {
	_, path, found := strings.Cut(fieldErr.Namespace(), ".")
	if !found {
		return fieldErr.Field()
	}

	return path
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fieldErr.Param()
	case "min", "gte":
		return "must be at least " + fieldErr.Param()
	case "max", "lte":
		return "must be at most " + fieldErr.Param()
	case "len":
		return "must be exactly " + fieldErr.Param() + " characters"
	default:
		return fmt.Sprintf("failed the %q rule", fieldErr.Tag())
	}
}

func (h *RequestHandler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError renders err as a problem document, logging server side failures.
func (h *RequestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	domainErr := domain.AsDomainError(err)

	if domainErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("code", domainErr.Code).
			Msg("request failed")
	}

	middleware.WriteProblem(w, r, domainErr)
}

// ParamErrorHandler renders parameter binding failures.
func ParamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteProblem(w, r, handlers.ToDomainError(err))
}
