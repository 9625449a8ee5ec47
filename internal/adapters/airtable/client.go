package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const (
	lookupMaxRecords = 3
	pageSize         = 100
	defaultLinked    = 10

	applicationsField = "Applications ↗"
	transactionsField = "Transactions ↗"
	expandedSuffix    = "_expanded"
)

type (
	// Client reads the CRM base through the Airtable REST API.
	Client struct {
		client         *resty.Client
		circuitBreaker *gobreaker.CircuitBreaker
		config         config.AirtableConfig
		logger         infrastructure.Logger
	}

	listResponse struct {
		Records []domain.AirtableRecord `json:"records"`
		Offset  string                  `json:"offset"`
	}
)

func NewClient(cfg config.AirtableConfig, logger infrastructure.Logger) *Client {
	logger = logger.Component("airtable")

	client := resty.New()

	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	cbSettings := gobreaker.Settings{
		Name:        "airtable",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
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

	return &Client{
		client:         client,
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		config:         cfg,
		logger:         logger,
	}
}

// Lookup finds at most three records whose field equals the value, ignoring case. A
// single match gets its linked applications and transactions expanded.
func (c *Client) Lookup(ctx context.Context, req domain.AirtableLookupRequest) (*domain.AirtableLookupResult, error) {
	startTime := time.Now()

	column, ok := domain.LookupColumn(req.Field)
	if !ok {
		return nil, domain.NewAirtableError(
			domain.AirtableInputError,
			fmt.Sprintf("unsupported lookup field %q, expected email, orderId or phone", req.Field),
			nil,
		)
	}

	value := strings.TrimSpace(req.Value)
	if value == "" {
		return nil, domain.NewAirtableError(domain.AirtableInputError, "lookup value must not be empty", nil)
	}

	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	if c.config.LookupTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.LookupTimeout)
		defer cancel()
	}

	view := req.View
	if view == "" {
		view = c.config.View
	}

	matches, err := c.search(ctx, column, value, view)
	if err != nil {
		return nil, err
	}

	meta := domain.AirtableLookupMeta{}

	if len(matches) == 0 && column == domain.AirtablePhoneField {
		if variant, ok := phoneVariant(value); ok {
			matches, err = c.search(ctx, column, variant, view)
			if err != nil {
				return nil, err
			}

			if len(matches) > 0 {
				meta.UsedPhoneVariant = true
				meta.VariantUsed = variant
			}
		}
	}

	if len(matches) == 1 {
		c.expand(ctx, &matches[0], map[string]string{
			applicationsField: c.config.ApplicationsTable,
			transactionsField: c.config.TransactionsTable,
		})
	}

	meta.TotalMatches = len(matches)
	meta.Expanded = len(matches) == 1
	meta.ExecutionMS = time.Since(startTime).Milliseconds()

	if matches == nil {
		matches = []domain.AirtableRecord{}
	}

	return &domain.AirtableLookupResult{Records: matches, Meta: meta}, nil
}

// TrackCompleted reads the completed view. Bootstrap reads all of it, incremental only
// the records completed after since, with their applications expanded.
func (c *Client) TrackCompleted(
	ctx context.Context,
	mode string,
	since *time.Time,
) (*domain.AirtableTrackerResult, error) {
	switch mode {
	case domain.TrackerModeBootstrap:
	case domain.TrackerModeIncremental:
		if since == nil {
			return nil, domain.NewAirtableError(
				domain.AirtableInputError,
				"a start timestamp is required for incremental mode",
				nil,
			)
		}
	default:
		return nil, domain.NewAirtableError(
			domain.AirtableInputError,
			fmt.Sprintf("invalid mode %q, expected bootstrap or incremental", mode),
			nil,
		)
	}

	if c.config.CompletedView == "" {
		return nil, domain.NewAirtableError(domain.AirtableInputError, "completed view is not configured", nil)
	}

	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	if c.config.TrackerTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.TrackerTimeout)
		defer cancel()
	}

	params := map[string]string{
		"view":                  c.config.CompletedView,
		"pageSize":              strconv.Itoa(pageSize),
		"returnFieldsByFieldId": "false",
	}

	if mode == domain.TrackerModeIncremental {
		params["filterByFormula"] = fmt.Sprintf(
			"IS_AFTER({%s}, '%s')",
			domain.AirtableCompletedField,
			since.UTC().Format(domain.AirtableTimestampLayout),
		)
	}

	records, err := c.listAll(ctx, c.config.Table, params)
	if err != nil {
		return nil, err
	}

	// Expanding every record of a bootstrap run is too slow for large views.
	if mode == domain.TrackerModeIncremental {
		for i := range records {
			c.expand(ctx, &records[i], map[string]string{applicationsField: c.config.ApplicationsTable})
		}
	}

	c.logger.Info().
		Str("mode", mode).
		Int("records", len(records)).
		Msg("completed records fetched")

	return &domain.AirtableTrackerResult{
		Mode:              mode,
		Records:           records,
		NewestCompletedAt: newestCompleted(records),
	}, nil
}

func (c *Client) search(ctx context.Context, column, value, view string) ([]domain.AirtableRecord, error) {
	params := map[string]string{
		"filterByFormula":       fmt.Sprintf("LOWER({%s}) = '%s'", column, escapeFormulaValue(strings.ToLower(value))),
		"maxRecords":            strconv.Itoa(lookupMaxRecords),
		"returnFieldsByFieldId": "false",
	}

	if view != "" {
		params["view"] = view
	}

	page, err := c.list(ctx, c.config.Table, params)
	if err != nil {
		return nil, err
	}

	return page.Records, nil
}

func (c *Client) listAll(ctx context.Context, table string, params map[string]string) ([]domain.AirtableRecord, error) {
	var records []domain.AirtableRecord

	for {
		page, err := c.list(ctx, table, params)
		if err != nil {
			return nil, err
		}

		records = append(records, page.Records...)

		if page.Offset == "" {
			return records, nil
		}

		params["offset"] = page.Offset
	}
}

func (c *Client) list(ctx context.Context, table string, params map[string]string) (*listResponse, error) {
	result, err := c.circuitBreaker.Execute(func() (any, error) {
		var page listResponse

		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&page).
			Get("/" + url.PathEscape(c.config.BaseID) + "/" + url.PathEscape(table))
		if err != nil {
			return nil, domain.NewAirtableError(domain.AirtableAPIError, "airtable request failed", err)
		}

		if resp.IsError() {
			return nil, domain.NewAirtableError(
				domain.AirtableAPIError,
				fmt.Sprintf("airtable returned %d", resp.StatusCode()),
				errors.New(strings.TrimSpace(string(resp.Body()))),
			)
		}

		return &page, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewAirtableError(
				domain.AirtableAPIError,
				"airtable temporarily unavailable",
				fmt.Errorf("%w: %w", domain.ErrCircuitBreakerOpen, err),
			)
		}

		return nil, err
	}

	return result.(*listResponse), nil
}

// expand attaches the records linked through each field, keyed "<field>_expanded".
// Failures leave the record unexpanded.
func (c *Client) expand(ctx context.Context, record *domain.AirtableRecord, tables map[string]string) {
	limit := c.config.MaxLinkedExpansions
	if limit <= 0 {
		limit = defaultLinked
	}

	for field, table := range tables {
		ids := record.LinkedIDs(field)
		if len(ids) == 0 || table == "" {
			continue
		}

		if len(ids) > limit {
			ids = ids[:limit]
		}

		page, err := c.list(ctx, table, map[string]string{
			"filterByFormula":       recordIDFormula(ids),
			"maxRecords":            strconv.Itoa(limit),
			"returnFieldsByFieldId": "false",
		})
		if err != nil {
			c.logger.Warn().Err(err).Str("field", field).Str("record_id", record.ID).Msg("linked records not expanded")

			continue
		}

		if len(page.Records) == 0 {
			continue
		}

		if record.Expanded == nil {
			record.Expanded = make(map[string][]domain.AirtableRecord)
		}

		record.Expanded[strings.TrimSuffix(field, " ↗")+expandedSuffix] = page.Records
	}
}

func (c *Client) checkConfig() error {
	if c.config.APIKey == "" || c.config.BaseID == "" || c.config.Table == "" {
		return domain.NewAirtableError(
			domain.AirtableConfigurationError,
			"airtable credentials not configured, set AIRTABLE_API_KEY, AIRTABLE_BASE_ID and AIRTABLE_TABLE",
			nil,
		)
	}

	return nil
}

func recordIDFormula(ids []string) string {
	conditions := make([]string, 0, len(ids))
	for _, id := range ids {
		conditions = append(conditions, fmt.Sprintf("RECORD_ID() = '%s'", escapeFormulaValue(id)))
	}

	if len(conditions) == 1 {
		return conditions[0]
	}

	return "OR(" + strings.Join(conditions, ",") + ")"
}

func escapeFormulaValue(value string) string {
	return strings.ReplaceAll(value, "'", `\'`)
}

// phoneVariant applies only to values typed as an Israeli number with at least one local digit.
func phoneVariant(value string) (string, bool) {
	if !strings.HasPrefix(value, "972") || len(value) < 4 {
		return "", false
	}

	return domain.IsraeliPhoneVariant(value)
}

func newestCompleted(records []domain.AirtableRecord) *time.Time {
	var newest *time.Time

	for _, record := range records {
		raw := record.StringField(domain.AirtableCompletedField)
		if raw == "" {
			continue
		}

		completedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			continue
		}

		if newest == nil || completedAt.After(*newest) {
			newest = &completedAt
		}
	}

	return newest
}
