package infrastructure

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

const postgresDriver = "postgres"

// Storage owns the Postgres connection pool, the pool is opened on first use.
type Storage struct {
	cfg config.StorageConfig

	once sync.Once
	db   *sqlx.DB
	err  error
}

func NewStorage(cfg config.StorageConfig) (*Storage, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("postgres host and database are required")
	}

	return &Storage{cfg: cfg}, nil
}

func (s *Storage) GetDB() (*sqlx.DB, error) {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
		defer cancel()

		db, err := sqlx.ConnectContext(ctx, postgresDriver, s.DSN())
		if err != nil {
			s.err = fmt.Errorf("failed to connect to postgres: %w", err)

			return
		}

		db.SetMaxOpenConns(s.cfg.MaxOpenConns)
		db.SetMaxIdleConns(s.cfg.MaxIdleConns)
		db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(s.cfg.ConnMaxIdleTime)

		s.db = db
	})

	return s.db, s.err
}

// DSN renders the lib/pq connection URL.
func (s *Storage) DSN() string {
	query := url.Values{}
	query.Set("sslmode", s.cfg.SSLMode)

	if s.cfg.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(s.cfg.ConnectTimeout.Seconds())))
	}

	dsn := url.URL{
		Scheme:   postgresDriver,
		User:     url.UserPassword(s.cfg.Username, s.cfg.Password),
		Host:     net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Path:     "/" + s.cfg.Database,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func (s *Storage) Ping(ctx context.Context) error {
	db, err := s.GetDB()
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
