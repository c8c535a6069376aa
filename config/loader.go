package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var defaults = map[string]interface{}{
	"app.name":                          "retail-sales-api",
	"app.environment":                   "development",
	"server.port":                       3001,
	"server.base_path":                  "/api",
	"server.allow_origins":              "*",
	"store.driver":                      DriverPostgres,
	"store.fetch_cap":                   50000,
	"store.tag_sample_limit":            10000,
	"database.postgres.url":             "",
	"database.postgres.host":            "localhost",
	"database.postgres.port":            5432,
	"database.postgres.database":        "retail_sales",
	"database.postgres.user":            "postgres",
	"database.postgres.password":        "",
	"database.postgres.sslmode":         "disable",
	"database.postgres.max_connections": 10,
	"database.elasticsearch.addresses":  []string{"http://localhost:9200"},
	"database.elasticsearch.username":   "",
	"database.elasticsearch.password":   "",
	"database.elasticsearch.index":      "sales",
	"redis.enabled":                     false,
	"redis.address":                     "localhost:6379",
	"redis.password":                    "",
	"redis.db":                          0,
	"redis.ttl":                         "10m",
	"auth.jwt_secret":                   "",
	"auth.token_ttl":                    "720h",
	"logging.level":                     "info",
	"logging.format":                    "console",
	"importer.data_dir":                 "./data",
	"importer.batch_size":               1000,
}

// legacy env names still honoured next to the generated SECTION_KEY ones.
var legacyEnv = map[string][]string{
	"server.port":           {"PORT"},
	"server.allow_origins":  {"ALLOW_ORIGINS"},
	"database.postgres.url": {"DATABASE_URL"},
	"auth.jwt_secret":       {"JWT_SECRET"},
	"redis.address":         {"REDIS_URL"},
}

// Load reads .env, an optional config.yaml and the environment, in that order of
// increasing precedence.
func Load() (*Config, error) {
	return LoadWithFlags(nil, nil)
}

// LoadWithFlags is Load with command line flags on top. bindings maps config
// keys to flag names; a flag only wins when it was set explicitly.
func LoadWithFlags(fs *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return nil, fmt.Errorf("unknown flag %q for %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case DriverPostgres, DriverElasticsearch:
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.FetchCap <= 0 {
		return errors.New("store.fetch_cap must be positive")
	}
	if cfg.Store.TagSampleLimit <= 0 {
		return errors.New("store.tag_sample_limit must be positive")
	}
	if cfg.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if cfg.Importer.BatchSize <= 0 {
		return errors.New("importer.batch_size must be positive")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		cfg.Server.BasePath = "/" + cfg.Server.BasePath
	}
	return nil
}
