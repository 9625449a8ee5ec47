package cbb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const (
	accessTokenHeader = "X-ACCESS-TOKEN"
	defaultTimeout    = 15 * time.Second
	defaultCacheSize  = 1000
)

type (
	// Client talks to the CBB WhatsApp API.
	Client struct {
		client         *resty.Client
		circuitBreaker *gobreaker.CircuitBreaker
		contacts       *expirable.LRU[string, string]
		phoneFieldID   string
		logger         infrastructure.Logger
	}

	// APIError is a non 2xx answer of the CBB API.
	APIError struct {
		StatusCode int
		Message    string
	}

	contactRecord struct {
		ID flexibleID `json:"id"`
	}

	contactList struct {
		Data []contactRecord `json:"data"`
	}

	errorBody struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	// flexibleID accepts ids sent either as JSON numbers or strings.
	flexibleID string
)

func NewClient(cfg config.CBBConfig, logger infrastructure.Logger) *Client {
	logger = logger.Component("cbb")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New()

	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.MaxRetryWaitTime).
		SetHeader(accessTokenHeader, cfg.AccessToken).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}

			return resp.StatusCode() == http.StatusTooManyRequests ||
				resp.StatusCode() >= http.StatusInternalServerError
		})

	cbSettings := gobreaker.Settings{
		Name:        "cbb",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Rejections of a healthy API must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	cacheSize := cfg.ContactCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	return &Client{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		contacts:       expirable.NewLRU[string, string](cacheSize, nil, cfg.ContactCacheTTL),
		phoneFieldID:   cfg.PhoneFieldID,
		logger:         logger,
	}
}

// FindContactByPhone returns the id of the contact owning phone, found is false when there is none.
func (c *Client) FindContactByPhone(ctx context.Context, phone string) (string, bool, error) {
	var result contactList

	err := c.execute(ctx, "find contact", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParams(map[string]string{
				"field_id": c.phoneFieldID,
				"value":    phone,
			}).
			SetResult(&result).
			Get("/contacts/find_by_custom_field")
	})

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	for _, record := range result.Data {
		if record.ID != "" {
			return string(record.ID), true, nil
		}
	}

	return "", false, nil
}

func (c *Client) CreateContact(ctx context.Context, contact domain.Contact) (string, error) {
	var result contactRecord

	err := c.execute(ctx, "create contact", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]string{
				"phone":      contact.Phone,
				"first_name": contact.FirstName,
				"last_name":  contact.LastName,
				"email":      contact.Email,
			}).
			SetResult(&result).
			Post("/contacts")
	})
	if err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", &APIError{StatusCode: http.StatusBadGateway, Message: "contact created without an id"}
	}

	return string(result.ID), nil
}

// EnsureContact resolves the contact of the phone, creating it when missing. Resolved
// ids stay in the in-process cache until their TTL expires.
func (c *Client) EnsureContact(ctx context.Context, contact domain.Contact) (string, error) {
	phone := domain.NormalizePhone(contact.Phone)
	if phone == "" {
		return "", &APIError{StatusCode: http.StatusBadRequest, Message: "invalid phone number"}
	}

	if id, ok := c.contacts.Get(phone); ok {
		return id, nil
	}

	id, found, err := c.FindContactByPhone(ctx, phone)
	if err != nil {
		return "", err
	}

	if !found {
		contact.Phone = phone

		id, err = c.CreateContact(ctx, contact)
		if err != nil {
			return "", err
		}

		c.logger.Info().Str("contact_id", id).Msg("contact created")
	}

	c.contacts.Add(phone, id)

	return id, nil
}

// SendTemplate sends a WhatsApp template. A contact the API no longer knows is dropped
// from the cache, so the retry resolves the phone again.
func (c *Client) SendTemplate(ctx context.Context, contactID, template string, params map[string]string) error {
	err := c.execute(ctx, "send template", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]any{
				"template": template,
				"params":   params,
			}).
			Post("/contacts/" + url.PathEscape(contactID) + "/send_template")
	})

	c.forgetMissingContact(contactID, err)

	return err
}

func (c *Client) SetCustomFields(ctx context.Context, contactID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	err := c.execute(ctx, "set custom fields", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]any{"fields": fields}).
			Post("/contacts/" + url.PathEscape(contactID) + "/custom_fields")
	})

	c.forgetMissingContact(contactID, err)

	return err
}

func (c *Client) AddTag(ctx context.Context, contactID, tag string) error {
	err := c.execute(ctx, "add tag", func(req *resty.Request) (*resty.Response, error) {
		return req.Post("/contacts/" + url.PathEscape(contactID) + "/tags/" + url.PathEscape(tag))
	})

	c.forgetMissingContact(contactID, err)

	return err
}

func (c *Client) forgetMissingContact(contactID string, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return
	}

	for _, phone := range c.contacts.Keys() {
		if id, ok := c.contacts.Peek(phone); ok && id == contactID {
			c.contacts.Remove(phone)

			c.logger.Info().Str("contact_id", contactID).Msg("stale contact evicted from cache")
		}
	}
}

func (c *Client) execute(
	ctx context.Context,
	operation string,
	send func(req *resty.Request) (*resty.Response, error),
) error {
	startTime := time.Now()

	_, err := c.circuitBreaker.Execute(func() (any, error) {
		resp, err := send(c.client.R().SetContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("cbb %s failed: %w", operation, err)
		}

		if resp.IsError() {
			return nil, newAPIError(resp)
		}

		c.logger.Debug().
			Str("operation", operation).
			Int("status_code", resp.StatusCode()).
			Int64("duration_ms", time.Since(startTime).Milliseconds()).
			Msg("cbb request completed")

		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn().Str("operation", operation).Msg("circuit breaker is open")

		return fmt.Errorf("%w: cbb: %w", domain.ErrCircuitBreakerOpen, err)
	}

	return err
}

func newAPIError(resp *resty.Response) *APIError {
	var body errorBody

	message := http.StatusText(resp.StatusCode())
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != "":
			message = body.Error
		}
	}

	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cbb api returned %d: %s", e.StatusCode, e.Message)
}

// Permanent reports whether repeating the request cannot succeed.
func (e *APIError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusUnprocessableEntity:
		return true
	}

	return false
}

// IsPermanent reports whether err is a permanent CBB rejection.
func IsPermanent(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Permanent()
}

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*id = flexibleID(text)

		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("contact id is neither a string nor a number: %w", err)
	}

	*id = flexibleID(number.String())

	return nil
}
