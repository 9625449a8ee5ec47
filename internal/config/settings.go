package config

import (
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
	APIVersion     string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type (
	ServiceConfig struct {
		AppConfig             AppConfig                   `json:"app_config"`
		Logging               LoggingConfig               `json:"logging"`
		Telemetry             Telemetry                   `json:"telemetry"`
		SecretStorage         SecretStorageConfig         `json:"secret_storage"`
		HTTPServer            HTTPServerConfig            `json:"http_server"`
		Cache                 CacheConfig                 `json:"cache"`
		Storage               StorageConfig               `json:"storage"`
		Queue                 QueueConfig                 `json:"queue"`
		Jobs                  JobsConfig                  `json:"jobs"`
		Outbox                OutboxConfig                `json:"outbox"`
		ThrottledRateLimiting ThrottledRateLimitingConfig `json:"throttled_rate_limiting"`
		Backoff               BackoffConfig               `json:"backoff"`
		Auth                  AuthConfig                  `json:"auth"`
		CBB                   CBBConfig                   `json:"cbb"`
		Airtable              AirtableConfig              `json:"airtable"`
		PDFRenderer           PDFRendererConfig           `json:"pdf_renderer"`
		DocumentStorage       DocumentStorageConfig       `json:"document_storage"`
		Notifications         NotificationsConfig         `json:"notifications"`
		Search                SearchConfig                `json:"search"`
		Scraper               ScraperConfig               `json:"scraper"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"svc-visa-processing" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		APIVersion     string `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"unknown" json:"env"`
		PublicURL      string `envconfig:"APP_PUBLIC_URL" default:"http://localhost:8088" json:"public_url"`
	}

	LoggingConfig struct {
		Level     string          `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format    string          `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
		File      LogFileConfig   `json:"file"`
		AccessLog AccessLogConfig `json:"access_log"`
	}

	LogFileConfig struct {
		Path       string `envconfig:"LOGGING_FILE_PATH" default:"" json:"path"`
		MaxSizeMB  int    `envconfig:"LOGGING_FILE_MAX_SIZE_MB" default:"100" json:"max_size_mb"`
		MaxBackups int    `envconfig:"LOGGING_FILE_MAX_BACKUPS" default:"5" json:"max_backups"`
		MaxAgeDays int    `envconfig:"LOGGING_FILE_MAX_AGE_DAYS" default:"14" json:"max_age_days"`
		Compress   bool   `envconfig:"LOGGING_FILE_COMPRESS" default:"true" json:"compress"`
	}

	AccessLogConfig struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
		// QuietPaths are never access logged, "/api/v1/webhooks/*" covers a whole subtree.
		QuietPaths []string `envconfig:"ACCESS_LOG_QUIET_PATHS" default:"" json:"quiet_paths"`
	}

	Telemetry struct {
		ExporterType string `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`

		OtelGRPCHost       string `envconfig:"OTEL_HOST" json:"otel_grpc_host"`
		OtelGRPCPort       string `envconfig:"OTEL_PORT" default:"4317" json:"otel_grpc_port"`
		OtelProductCluster string `envconfig:"OTEL_PRODUCT_CLUSTER" json:"otel_product_cluster"`

		Metrics Metrics `json:"metrics"`
		Traces  Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
		// PrometheusEnabled exposes the OTEL instruments on /metrics in addition to OTLP.
		PrometheusEnabled bool `envconfig:"METRICS_PROMETHEUS_ENABLED" default:"true" json:"prometheus_enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1" json:"sampler_ratio"`
	}

	SecretStorageConfig struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"true" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"bottom-Secret" json:"token,omitempty"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-visa-processing" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	HTTPServerConfig struct {
		Port            int           `envconfig:"HTTP_SERVER_PORT" default:"8088" json:"port"`
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		ReadTimeout     time.Duration `envconfig:"HTTP_SERVER_READ_TIMEOUT" default:"30s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_SERVER_WRITE_TIMEOUT" default:"30s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_SERVER_IDLE_TIMEOUT" default:"120s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SERVER_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		RequestTimeout  time.Duration `envconfig:"HTTP_SERVER_REQUEST_TIMEOUT" default:"60s" json:"request_timeout"`
		ValidateRequest bool          `envconfig:"HTTP_SERVER_VALIDATE_REQUEST" default:"true" json:"validate_request"`
	}

	StorageConfig struct {
		Host            string        `envconfig:"POSTGRES_HOST" default:"postgres" json:"host"`
		Port            int           `envconfig:"POSTGRES_PORT" default:"5432" json:"port"`
		Database        string        `envconfig:"POSTGRES_DATABASE" default:"visa_processing" json:"database"`
		Username        string        `envconfig:"POSTGRES_USERNAME" default:"postgres" json:"username"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"" json:"password,omitempty"`
		SSLMode         string        `envconfig:"POSTGRES_SSL_MODE" default:"disable" json:"ssl_mode"`
		MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25" json:"max_open_conns"`
		MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5" json:"max_idle_conns"`
		ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m" json:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"5m" json:"conn_max_idle_time"`
		ConnectTimeout  time.Duration `envconfig:"POSTGRES_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		QueryTimeout    time.Duration `envconfig:"POSTGRES_QUERY_TIMEOUT" default:"30s" json:"query_timeout"`
	}

	QueueConfig struct {
		Host           string        `envconfig:"RABBITMQ_HOST" default:"rabbitmq" json:"host"`
		Port           int           `envconfig:"RABBITMQ_PORT" default:"5672" json:"port"`
		Username       string        `envconfig:"RABBITMQ_USERNAME" default:"admin" json:"username"`
		Password       string        `envconfig:"RABBITMQ_PASSWORD" default:"bottom.Secret" json:"password,omitempty"`
		VirtualHost    string        `envconfig:"RABBITMQ_VIRTUAL_HOST" default:"/" json:"virtual_host"`
		TLS            bool          `envconfig:"RABBITMQ_TLS" default:"false" json:"tls"`
		ConnectionName string        `envconfig:"RABBITMQ_CONNECTION_NAME" default:"visa-processing" json:"connection_name"`
		ExchangeName   string        `envconfig:"RABBITMQ_EXCHANGE_NAME" default:"visa-processing.jobs" json:"exchange_name"`
		ConnectTimeout time.Duration `envconfig:"RABBITMQ_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		Heartbeat      time.Duration `envconfig:"RABBITMQ_HEARTBEAT" default:"10s" json:"heartbeat"`
		PrefetchCount  int           `envconfig:"RABBITMQ_PREFETCH_COUNT" default:"10" json:"prefetch_count"`
		MaxPriority    uint8         `envconfig:"RABBITMQ_MAX_PRIORITY" default:"10" json:"max_priority"`
		Durable        bool          `envconfig:"RABBITMQ_DURABLE" default:"true" json:"durable"`
		AutoDelete     bool          `envconfig:"RABBITMQ_AUTO_DELETE" default:"false" json:"auto_delete"`
		// Queues lists the queues a worker consumes, empty means all of them.
		Queues []string `envconfig:"WORKER_QUEUES" default:"" json:"queues"`
	}

	// JobsConfig carries the default options for every named queue.
	JobsConfig struct {
		Critical         JobDefaults `envconfig:"CRITICAL" json:"critical"`
		Default          JobDefaults `envconfig:"DEFAULT" json:"default"`
		Bulk             JobDefaults `envconfig:"BULK" json:"bulk"`
		WhatsAppMessages JobDefaults `envconfig:"WHATSAPP" json:"whatsapp_messages"`
		PDF              JobDefaults `envconfig:"PDF" json:"pdf"`
		CBBSync          JobDefaults `envconfig:"CBB_SYNC" json:"cbb_sync"`
		Scraper          JobDefaults `envconfig:"SCRAPER" json:"scraper"`
		BulkConcurrency  int         `envconfig:"JOBS_BULK_CONCURRENCY" default:"8" json:"bulk_concurrency"`
		BatchChunkSize   int         `envconfig:"JOBS_BATCH_CHUNK_SIZE" default:"100" json:"batch_chunk_size"`
	}

	// JobDefaults overrides the built-in queue options, zero values keep the built-in ones.
	JobDefaults struct {
		Attempts    int           `envconfig:"ATTEMPTS" json:"attempts"`
		BackoffType string        `envconfig:"BACKOFF_TYPE" json:"backoff_type"`
		Delay       time.Duration `envconfig:"DELAY" json:"delay"`
		Priority    uint8         `envconfig:"PRIORITY" json:"priority"`
		Concurrency int           `envconfig:"CONCURRENCY" json:"concurrency"`
	}

	OutboxConfig struct {
		PollInterval time.Duration        `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s" json:"poll_interval"`
		BatchSize    int                  `envconfig:"OUTBOX_BATCH_SIZE" default:"10" json:"batch_size"`
		ClaimTimeout time.Duration        `envconfig:"OUTBOX_CLAIM_TIMEOUT" default:"2m" json:"claim_timeout"`
		MaxRetries   MaxRetriesByPriority `json:"max_retries"`
	}

	MaxRetriesByPriority struct {
		Low    int `envconfig:"OUTBOX_MAX_RETRIES_LOW" default:"3" json:"low"`
		Normal int `envconfig:"OUTBOX_MAX_RETRIES_NORMAL" default:"5" json:"normal"`
		High   int `envconfig:"OUTBOX_MAX_RETRIES_HIGH" default:"7" json:"high"`
		Urgent int `envconfig:"OUTBOX_MAX_RETRIES_URGENT" default:"10" json:"urgent"`
	}

	CacheConfig struct {
		Addr                 string        `envconfig:"REDIS_ADDR" default:"redis:6379" json:"addr"`
		Password             string        `envconfig:"REDIS_PASSWORD" default:"" json:"password,omitempty"`
		DB                   int           `envconfig:"REDIS_DB" default:"0" json:"db"`
		PoolSize             int           `envconfig:"REDIS_POOL_SIZE" default:"10" json:"pool_size"`
		MinIdleConns         int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"3" json:"min_idle_conns"`
		DialTimeout          time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout          time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout         time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		PoolTimeout          time.Duration `envconfig:"REDIS_POOL_TIMEOUT" default:"5s" json:"pool_timeout"`
		MaxRetries           int           `envconfig:"REDIS_MAX_RETRIES" default:"3" json:"max_retries"`
		DefaultExpiry        time.Duration `envconfig:"CACHE_DEFAULT_EXPIRY" default:"5m" json:"default_expiry"`
		ListExpiry           time.Duration `envconfig:"CACHE_LIST_EXPIRY" default:"1m" json:"list_expiry"`
		KeyPrefix            string        `envconfig:"CACHE_KEY_PREFIX" default:"visa" json:"key_prefix"`
		CompressionThreshold int           `envconfig:"CACHE_COMPRESSION_THRESHOLD" default:"8192" json:"compression_threshold"`
		ScanCount            int64         `envconfig:"CACHE_SCAN_COUNT" default:"500" json:"scan_count"`
	}

	ThrottledRateLimitingConfig struct {
		Enabled           bool          `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		RequestsPerSecond int           `envconfig:"RATE_LIMITING_REQUESTS_PER_SECOND" default:"10" json:"requests_per_second"`
		BurstSize         int           `envconfig:"RATE_LIMITING_BURST_SIZE" default:"20" json:"burst_size"`
		WindowDuration    time.Duration `envconfig:"RATE_LIMITING_WINDOW_DURATION" default:"5m" json:"window_duration"`
		EnableIPLimiting  bool          `envconfig:"RATE_LIMITING_ENABLE_IP_LIMITING" default:"true" json:"enable_ip_limiting"`
		MaxKeys           int           `envconfig:"RATE_LIMITING_MAX_KEYS" default:"1000" json:"max_keys"`
		SkipPaths         []string      `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/health,/metrics" json:"skip_paths"`
	}

	AuthConfig struct {
		Enabled            bool          `envconfig:"AUTH_ENABLED" default:"true" json:"enabled"`
		SecretKey          string        `envconfig:"AUTH_SECRET_KEY" default:"default-secret-key-change-in-production" json:"secret_key,omitempty"`
		ValidIssuers       []string      `envconfig:"AUTH_VALID_ISSUERS" default:"visa-processing-admin,auth-service" json:"valid_issuers"`
		TokenExpiry        time.Duration `envconfig:"AUTH_TOKEN_EXPIRY" default:"1h" json:"token_expiry"`
		PasetoKeyPath      string        `envconfig:"AUTH_PASETO_KEY_PATH" default:"secret/data/paseto/public-key" json:"paseto_key_path"`
		UseVaultKeys       bool          `envconfig:"AUTH_USE_VAULT_KEYS" default:"true" json:"use_vault_keys"`
		KeyCacheTTL        time.Duration `envconfig:"AUTH_KEY_CACHE_TTL" default:"1h" json:"key_cache_ttl"`
		FallbackKeyHex     string        `envconfig:"AUTH_FALLBACK_KEY_HEX" default:"01c7981f62c676934dc4acfa7825205ae927960875d09abec497efbe2dba41b7" json:"fallback_key_hex,omitempty"`
		APIKeyPepper       string        `envconfig:"AUTH_API_KEY_PEPPER" default:"" json:"api_key_pepper,omitempty"`
		SupabaseHookSecret string        `envconfig:"AUTH_SUPABASE_HOOK_SECRET" default:"" json:"supabase_hook_secret,omitempty"`
		HookTolerance      time.Duration `envconfig:"AUTH_SUPABASE_HOOK_TOLERANCE" default:"5m" json:"hook_tolerance"`
		SkipPaths          []string      `envconfig:"AUTH_SKIP_PATHS" default:"/health,/health/live,/health/ready,/metrics" json:"skip_paths"`
	}

	BackoffConfig struct {
		// BaseDelay is the amount of time to backoff after the first failure.
		BaseDelay time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		// Multiplier is the factor with which to multiply backoffs after a
		// failed retry. Should ideally be greater than 1.
		Multiplier float64 `envconfig:"BACKOFF_MULTIPLIER" default:"1.6" json:"multiplier"`
		// Jitter is the factor with which backoffs are randomized.
		Jitter float64 `envconfig:"BACKOFF_JITTER" default:"0.2" json:"jitter"`
		// MaxDelay is the upper bound of backoff delay.
		MaxDelay time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"10s" json:"max_delay"`
	}

	CircuitBreakerConfig struct {
		MaxRequests uint32        `envconfig:"MAX_REQUESTS" default:"3" json:"max_requests"`
		Interval    time.Duration `envconfig:"INTERVAL" default:"10s" json:"interval"`
		Timeout     time.Duration `envconfig:"TIMEOUT" default:"60s" json:"timeout"`
	}

	CBBConfig struct {
		BaseURL          string               `envconfig:"CBB_BASE_URL" default:"https://app.chatgptbuilder.io/api" json:"base_url"`
		AccessToken      string               `envconfig:"CBB_ACCESS_TOKEN" default:"" json:"access_token,omitempty"`
		PhoneFieldID     string               `envconfig:"CBB_PHONE_FIELD_ID" default:"phone" json:"phone_field_id"`
		Timeout          time.Duration        `envconfig:"CBB_TIMEOUT" default:"15s" json:"timeout"`
		MaxRetries       int                  `envconfig:"CBB_MAX_RETRIES" default:"3" json:"max_retries"`
		RetryWaitTime    time.Duration        `envconfig:"CBB_RETRY_WAIT_TIME" default:"1s" json:"retry_wait_time"`
		MaxRetryWaitTime time.Duration        `envconfig:"CBB_MAX_RETRY_WAIT_TIME" default:"8s" json:"max_retry_wait_time"`
		ContactCacheSize int                  `envconfig:"CBB_CONTACT_CACHE_SIZE" default:"5000" json:"contact_cache_size"`
		ContactCacheTTL  time.Duration        `envconfig:"CBB_CONTACT_CACHE_TTL" default:"1h" json:"contact_cache_ttl"`
		CircuitBreaker   CircuitBreakerConfig `envconfig:"CBB_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}

	AirtableConfig struct {
		BaseURL             string        `envconfig:"AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0" json:"base_url"`
		APIKey              string        `envconfig:"AIRTABLE_API_KEY" default:"" json:"api_key,omitempty"`
		BaseID              string        `envconfig:"AIRTABLE_BASE_ID" default:"" json:"base_id"`
		Table               string        `envconfig:"AIRTABLE_TABLE" default:"Clients" json:"table"`
		View                string        `envconfig:"AIRTABLE_VIEW" default:"" json:"view"`
		CompletedView       string        `envconfig:"AIRTABLE_COMPLETED_VIEW" default:"Completed" json:"completed_view"`
		LookupTimeout       time.Duration `envconfig:"AIRTABLE_LOOKUP_TIMEOUT" default:"10s" json:"lookup_timeout"`
		TrackerTimeout      time.Duration `envconfig:"AIRTABLE_TRACKER_TIMEOUT" default:"30s" json:"tracker_timeout"`
		ApplicationsTable   string        `envconfig:"AIRTABLE_APPLICATIONS_TABLE" default:"Applications" json:"applications_table"`
		TransactionsTable   string        `envconfig:"AIRTABLE_TRANSACTIONS_TABLE" default:"Transactions" json:"transactions_table"`
		MaxLinkedExpansions int           `envconfig:"AIRTABLE_MAX_LINKED_EXPANSIONS" default:"10" json:"max_linked_expansions"`
	}

	PDFRendererConfig struct {
		URL          string               `envconfig:"PDF_RENDERER_URL" default:"http://chromium:3000" json:"url"`
		Timeout      time.Duration        `envconfig:"PDF_RENDERER_TIMEOUT" default:"60s" json:"timeout"`
		PaperWidth   string               `envconfig:"PDF_RENDERER_PAPER_WIDTH" default:"8.27" json:"paper_width"`
		PaperHeight  string               `envconfig:"PDF_RENDERER_PAPER_HEIGHT" default:"11.7" json:"paper_height"`
		MaxRetries   int                  `envconfig:"PDF_RENDERER_MAX_RETRIES" default:"2" json:"max_retries"`
		EmailOnReady bool                 `envconfig:"PDF_RENDERER_EMAIL_ON_READY" default:"true" json:"email_on_ready"`
		Breaker      CircuitBreakerConfig `envconfig:"PDF_RENDERER_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}

	DocumentStorageConfig struct {
		Endpoint        string        `envconfig:"DOCUMENT_STORAGE_ENDPOINT" default:"http://supabase:8000/storage/v1/s3" json:"endpoint"`
		Region          string        `envconfig:"DOCUMENT_STORAGE_REGION" default:"us-east-1" json:"region"`
		Bucket          string        `envconfig:"DOCUMENT_STORAGE_BUCKET" default:"visa-documents" json:"bucket"`
		AccessKeyID     string        `envconfig:"DOCUMENT_STORAGE_ACCESS_KEY_ID" default:"" json:"access_key_id,omitempty"`
		SecretAccessKey string        `envconfig:"DOCUMENT_STORAGE_SECRET_ACCESS_KEY" default:"" json:"secret_access_key,omitempty"`
		PublicBaseURL   string        `envconfig:"DOCUMENT_STORAGE_PUBLIC_BASE_URL" default:"http://supabase:8000/storage/v1/object/public" json:"public_base_url"`
		UploadTimeout   time.Duration `envconfig:"DOCUMENT_STORAGE_UPLOAD_TIMEOUT" default:"30s" json:"upload_timeout"`
	}

	NotificationsConfig struct {
		Region        string `envconfig:"AWS_REGION" default:"eu-west-1" json:"region"`
		SenderEmail   string `envconfig:"NOTIFICATIONS_SENDER_EMAIL" default:"no-reply@visa-processing.local" json:"sender_email"`
		OpsTopicARN   string `envconfig:"NOTIFICATIONS_OPS_TOPIC_ARN" default:"" json:"ops_topic_arn"`
		EmailEnabled  bool   `envconfig:"NOTIFICATIONS_EMAIL_ENABLED" default:"true" json:"email_enabled"`
		AlertsEnabled bool   `envconfig:"NOTIFICATIONS_ALERTS_ENABLED" default:"true" json:"alerts_enabled"`
	}

	SearchConfig struct {
		Enabled   bool     `envconfig:"ELASTICSEARCH_ENABLED" default:"true" json:"enabled"`
		Addresses []string `envconfig:"ELASTICSEARCH_ADDRESSES" default:"http://elasticsearch:9200" json:"addresses"`
		Username  string   `envconfig:"ELASTICSEARCH_USERNAME" default:"" json:"username"`
		Password  string   `envconfig:"ELASTICSEARCH_PASSWORD" default:"" json:"password,omitempty"`
		LogIndex  string   `envconfig:"ELASTICSEARCH_LOG_INDEX" default:"visa-logs" json:"log_index"`
	}

	ScraperConfig struct {
		MaxRetries           int                  `envconfig:"SCRAPER_MAX_RETRIES" default:"3" json:"max_retries"`
		RetryWaitTime        time.Duration        `envconfig:"SCRAPER_RETRY_WAIT_TIME" default:"1s" json:"retry_wait_time"`
		MaxRetryWaitTime     time.Duration        `envconfig:"SCRAPER_MAX_RETRY_WAIT_TIME" default:"5s" json:"max_retry_wait_time"`
		MaxRedirects         int                  `envconfig:"SCRAPER_MAX_REDIRECTS" default:"10" json:"max_redirects"`
		MaxResponseSizeBytes int64                `envconfig:"SCRAPER_MAX_RESPONSE_SIZE_BYTES" default:"10485760" json:"max_response_size_bytes"` // 10MB
		Timeout              time.Duration        `envconfig:"SCRAPER_TIMEOUT" default:"30s" json:"timeout"`
		UserAgent            string               `envconfig:"SCRAPER_USER_AGENT" default:"VisaProcessing/1.0" json:"user_agent"`
		CircuitBreaker       CircuitBreakerConfig `envconfig:"SCRAPER_CIRCUIT_BREAKER" json:"circuit_breaker"`
	}
)

func (c OutboxConfig) GetMaxRetriesForPriority(priority string) int {
	switch priority {
	case PriorityLow:
		return c.MaxRetries.Low
	case PriorityNormal:
		return c.MaxRetries.Normal
	case PriorityHigh:
		return c.MaxRetries.High
	case PriorityUrgent:
		return c.MaxRetries.Urgent
	default:
		return c.MaxRetries.Normal
	}
}

// ForQueue returns the job defaults of the named queue, falling back to the default queue.
func (c JobsConfig) ForQueue(name string) JobDefaults {
	switch name {
	case "critical":
		return c.Critical
	case "bulk":
		return c.Bulk
	case "whatsapp-messages":
		return c.WhatsAppMessages
	case "pdf":
		return c.PDF
	case "cbb-sync":
		return c.CBBSync
	case "scraper":
		return c.Scraper
	default:
		return c.Default
	}
}
