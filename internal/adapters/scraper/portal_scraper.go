package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const (
	maxURLLength   = 2048
	defaultTimeout = 30 * time.Second
)

var whitespace = regexp.MustCompile(`\s+`)

type PortalScraper struct {
	client         *resty.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         infrastructure.Logger
	config         config.ScraperConfig

	// allowPrivateHosts lifts the private network guard, tests serve pages from loopback.
	allowPrivateHosts bool
}

func NewPortalScraper(cfg config.ScraperConfig, logger infrastructure.Logger) *PortalScraper {
	logger = logger.Component("portal-scraper")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New()

	client.SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.MaxRetryWaitTime).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects)).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	} else {
		client.SetHeader("User-Agent", "VisaProcessing/1.0")
	}

	client.SetHeaders(map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	})

	cbSettings := gobreaker.Settings{
		Name:        "portal-scraper",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsPermanent(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &PortalScraper{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
		config:         cfg,
	}
}

// Scrape fetches the portal page and reads the application status from the
// element matched by selector.
func (s *PortalScraper) Scrape(ctx context.Context, targetURL, selector string) (domain.ScrapeResult, error) {
	if err := s.validateURL(targetURL); err != nil {
		return domain.ScrapeResult{}, domain.PermanentJobError("INVALID_URL", "invalid portal url", err)
	}

	if strings.TrimSpace(selector) == "" {
		return domain.ScrapeResult{}, domain.PermanentJobError("INVALID_SELECTOR", "selector must not be empty", nil)
	}

	result, err := s.circuitBreaker.Execute(func() (any, error) {
		return s.fetch(ctx, targetURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn().Str("url", targetURL).Msg("circuit breaker is open")

			return domain.ScrapeResult{}, domain.RetryableJobError(
				domain.CodeCircuitOpen,
				"portal temporarily unavailable",
				fmt.Errorf("%w: %w", domain.ErrCircuitBreakerOpen, err),
			)
		}

		return domain.ScrapeResult{}, err
	}

	page := result.(*fetchedPage)

	scrape, err := parseStatus(page.html, selector)
	if err != nil {
		return domain.ScrapeResult{}, err
	}

	scrape.StatusCode = page.statusCode
	scrape.FetchedMS = page.duration.Milliseconds()

	s.logger.Info().
		Str("url", targetURL).
		Str("raw_status", scrape.RawStatus).
		Str("visa_status", string(scrape.VisaStatus)).
		Msg("portal status scraped")

	return scrape, nil
}

type fetchedPage struct {
	html       string
	statusCode int
	duration   time.Duration
}

func (s *PortalScraper) fetch(ctx context.Context, targetURL string) (*fetchedPage, error) {
	startTime := time.Now()

	resp, err := s.client.R().
		SetContext(ctx).
		Get(targetURL)
	if err != nil {
		return nil, domain.RetryableJobError("PORTAL_UNREACHABLE", "portal could not be reached", err)
	}

	duration := time.Since(startTime)

	s.logger.Debug().
		Str("url", targetURL).
		Int("status_code", resp.StatusCode()).
		Int64("duration_ms", duration.Milliseconds()).
		Int("size_bytes", len(resp.Body())).
		Msg("HTTP request completed")

	switch status := resp.StatusCode(); {
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return nil, domain.RetryableJobError(
			"PORTAL_UNAVAILABLE",
			fmt.Sprintf("portal answered %d", status),
			nil,
		)
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, domain.PermanentJobError(
			"PORTAL_REJECTED",
			fmt.Sprintf("portal answered %d", status),
			nil,
		)
	}

	if s.config.MaxResponseSizeBytes > 0 && int64(len(resp.Body())) > s.config.MaxResponseSizeBytes {
		return nil, domain.PermanentJobError(
			"RESPONSE_TOO_LARGE",
			fmt.Sprintf("response size %d bytes exceeds maximum allowed %d bytes", len(resp.Body()), s.config.MaxResponseSizeBytes),
			nil,
		)
	}

	return &fetchedPage{
		html:       string(resp.Body()),
		statusCode: resp.StatusCode(),
		duration:   duration,
	}, nil
}

func parseStatus(html, selector string) (domain.ScrapeResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ScrapeResult{}, domain.PermanentJobError("UNPARSABLE_PAGE", "portal page is not valid HTML", err)
	}

	raw := collapse(doc.Find(selector).First().Text())
	if raw == "" {
		return domain.ScrapeResult{}, domain.PermanentJobError(
			"STATUS_NOT_FOUND",
			fmt.Sprintf("selector %q matched no text", selector),
			nil,
		)
	}

	result := domain.ScrapeResult{
		RawStatus: raw,
		Title:     collapse(doc.Find("title").First().Text()),
	}

	if status, ok := domain.MapPortalStatus(raw); ok {
		result.VisaStatus = status
	}

	return result, nil
}

func collapse(text string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
}

func (s *PortalScraper) validateURL(targetURL string) error {
	if targetURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	if len(targetURL) > maxURLLength {
		return fmt.Errorf("URL must not exceed %d characters", maxURLLength)
	}

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	if !s.allowPrivateHosts && isPrivateOrLocalHost(parsedURL.Hostname()) {
		return fmt.Errorf("access to private or local networks is not allowed")
	}

	return nil
}

func isPrivateOrLocalHost(host string) bool {
	hostLower := strings.ToLower(host)
	if hostLower == "localhost" || strings.HasSuffix(hostLower, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}
