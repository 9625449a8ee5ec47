package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const (
	convertHTMLPath = "/forms/chromium/convert/html"
	indexFileName   = "index.html"
	pdfContentType  = "application/pdf"
)

// Renderer converts HTML to PDF through a headless Chromium service speaking the
// Gotenberg form API.
type Renderer struct {
	client         *resty.Client
	circuitBreaker *gobreaker.CircuitBreaker
	config         config.PDFRendererConfig
	logger         infrastructure.Logger
}

func NewRenderer(cfg config.PDFRendererConfig, logger infrastructure.Logger) *Renderer {
	logger = logger.Component("pdf-renderer")

	client := resty.New()

	client.SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	cbSettings := gobreaker.Settings{
		Name:        "pdf-renderer",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &Renderer{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		config:         cfg,
		logger:         logger,
	}
}

func (r *Renderer) Render(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, domain.PermanentJobError("EMPTY_DOCUMENT", "nothing to render", nil)
	}

	startTime := time.Now()

	result, err := r.circuitBreaker.Execute(func() (any, error) {
		resp, err := r.client.R().
			SetContext(ctx).
			SetFileReader("files", indexFileName, bytes.NewReader(html)).
			SetFormData(map[string]string{
				"paperWidth":      r.config.PaperWidth,
				"paperHeight":     r.config.PaperHeight,
				"printBackground": "true",
			}).
			Post(convertHTMLPath)
		if err != nil {
			return nil, fmt.Errorf("pdf conversion request failed: %w", err)
		}

		if resp.IsError() {
			return nil, fmt.Errorf("pdf renderer returned %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
		}

		if contentType := resp.Header().Get("Content-Type"); contentType != "" && !strings.HasPrefix(contentType, pdfContentType) {
			return nil, fmt.Errorf("pdf renderer answered with %s", contentType)
		}

		return resp.Body(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warn().Msg("circuit breaker is open")

			return nil, fmt.Errorf("%w: pdf renderer: %w", domain.ErrCircuitBreakerOpen, err)
		}

		return nil, err
	}

	document := result.([]byte)

	r.logger.Debug().
		Int("html_bytes", len(html)).
		Int("pdf_bytes", len(document)).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("document rendered")

	return document, nil
}
