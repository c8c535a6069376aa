package condb

import (
	"context"
	"fmt"

	"retail-sales/config"
	"retail-sales/logger"
	"retail-sales/models"
	"retail-sales/services"
	"retail-sales/store"
)

// RecordStore is what both binaries need from a sales store.
type RecordStore interface {
	services.Store
	Count(ctx context.Context) (int64, error)
	InsertBatch(ctx context.Context, records []models.SalesRecord) (int64, error)
}

// OpenRecordStore builds the store selected by store.driver and prepares its
// schema. A store that cannot be prepared is still returned so the API can
// answer 503 until it recovers; strict callers check the returned error.
func OpenRecordStore(ctx context.Context, cfg *config.Config, log logger.Logger) (RecordStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverElasticsearch:
		client, err := ConnectElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		es := store.NewElastic(client, cfg.Database.Elasticsearch.Index)
		if err := es.EnsureIndex(ctx); err != nil {
			log.Warn("elasticsearch index not ready", map[string]interface{}{"error": err})
			return es, func() {}, fmt.Errorf("ensure index: %w", err)
		}
		return es, func() {}, nil

	default:
		pool, err := NewPostgresPool(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		applied, err := Migrate(ctx, pool)
		if err != nil {
			log.Warn("postgres migrations not applied", map[string]interface{}{"error": err})
			return pg, pool.Close, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info("migrations applied", map[string]interface{}{"versions": applied})
		}
		return pg, pool.Close, nil
	}
}
