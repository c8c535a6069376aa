package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"retail-sales/cache"
	"retail-sales/condb"
	"retail-sales/config"
	"retail-sales/importer"
	"retail-sales/logger"
)

func main() {
	fs := pflag.NewFlagSet("importer", pflag.ExitOnError)
	file := fs.StringP("file", "f", "", "CSV file to import (default: first .csv in --data-dir)")
	fs.String("data-dir", "./data", "directory searched for a CSV export")
	fs.Int("batch-size", 1000, "records per insert batch")
	fs.String("driver", config.DriverPostgres, "record store driver (postgres, elasticsearch)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(fs, map[string]string{
		"importer.data_dir":   "data-dir",
		"importer.batch_size": "batch-size",
		"store.driver":        "driver",
	})
	if err != nil {
		logger.NewStructured("error", "console").Error("failed to load config", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *file, log); err != nil {
		log.Error("import failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, log logger.Logger) error {
	if file == "" {
		found, err := importer.FindCSV(cfg.Importer.DataDir)
		if errors.Is(err, importer.ErrNoCSV) {
			log.Info("no CSV files found, skipping import", map[string]interface{}{"dir": cfg.Importer.DataDir})
			return nil
		}
		if err != nil {
			return err
		}
		file = found
	}

	records, closeStore, err := condb.OpenRecordStore(ctx, cfg, log)
	if closeStore != nil {
		defer closeStore()
	}
	if err != nil {
		return err
	}
	if err := records.Ping(ctx); err != nil {
		return err
	}

	res, err := importer.New(records, cfg.Importer.BatchSize, log).ImportFile(ctx, file)
	if err != nil {
		return err
	}
	if res.Skipped {
		log.Info("using existing records", map[string]interface{}{"records": res.Existing})
		return nil
	}

	if cfg.Redis.Enabled && res.Inserted > 0 {
		rdb, err := condb.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("could not reach redis to drop cached facets", map[string]interface{}{"error": err})
			return nil
		}
		defer rdb.Close()
		if err := cache.NewFilterOptionsCache(nil, rdb, cfg.Redis.TTL, log).Invalidate(ctx); err != nil {
			log.Warn("failed to drop cached facets", map[string]interface{}{"error": err})
		}
	}
	return nil
}
