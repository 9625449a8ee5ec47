package infrastructure

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

func NewElasticsearch(cfg config.SearchConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return client, nil
}
