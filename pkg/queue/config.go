package queue

import (
	"crypto/tls"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

// Config describes how to reach the broker and how the connection presents itself.
type Config struct {
	Username string
	Password string
	Host     string
	Port     int
	Vhost    string

	// TLS switches the connection to amqps, verified against the system roots.
	TLS bool
	// Heartbeat falls back to 10s when zero.
	Heartbeat time.Duration
	// ConnectionName shows up in the management UI, e.g. "visa-processing-worker".
	ConnectionName string
}

// URL renders the AMQP URI, default credentials and ports are omitted.
func (cfg Config) URL() string {
	scheme := "amqp"
	if cfg.TLS {
		scheme = "amqps"
	}

	uri := amqp.URI{
		Scheme:   scheme,
		Username: cfg.Username,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Vhost:    cfg.Vhost,
	}

	return uri.String()
}

func (cfg Config) dialConfig(timeout time.Duration) amqp.Config {
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	dialCfg := amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     defaultLocale,
		Properties: amqp.NewConnectionProperties(),
	}

	if cfg.ConnectionName != "" {
		dialCfg.Properties.SetClientConnectionName(cfg.ConnectionName)
	}

	if cfg.TLS {
		dialCfg.TLSClientConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	if timeout > 0 {
		dialCfg.Dial = amqp.DefaultDial(timeout)
	}

	return dialCfg
}
