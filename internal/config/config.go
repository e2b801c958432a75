// Package config loads application configuration from config.yaml and the
// SOLARSCOUT_* environment, and builds the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/solar-scout/internal/landprice"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	LandPrice LandPriceConfig `yaml:"land_price" mapstructure:"land_price"`
	Bias      BiasConfig      `yaml:"bias" mapstructure:"bias"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the analysis store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file path
}

// EngineConfig configures the analysis pipeline.
type EngineConfig struct {
	DefaultTopK        int `yaml:"default_top_k" mapstructure:"default_top_k"`
	Workers            int `yaml:"workers" mapstructure:"workers"`
	PolygonTimeoutSecs int `yaml:"polygon_timeout_secs" mapstructure:"polygon_timeout_secs"`
	Year               int `yaml:"year" mapstructure:"year"`
}

// OverpassConfig configures the OSM polygon provider.
type OverpassConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	ZoneTTLHours int     `yaml:"zone_ttl_hours" mapstructure:"zone_ttl_hours"`
	Shapefile    string  `yaml:"shapefile" mapstructure:"shapefile"` // offline zone source, overrides the API
}

// LandPriceConfig configures pricing providers and cache.
type LandPriceConfig struct {
	APIBaseURL      string                    `yaml:"api_base_url" mapstructure:"api_base_url"`
	APIKey          string                    `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs     int                       `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours   int                       `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	CacheMaxEntries int                       `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
	Synthetic       landprice.SyntheticConfig `yaml:"synthetic" mapstructure:"synthetic"`
}

// BiasConfig configures the bias corrector.
type BiasConfig struct {
	ClimatologyFile  string  `yaml:"climatology_file" mapstructure:"climatology_file"`
	CSIWeight        float64 `yaml:"csi_weight" mapstructure:"csi_weight"`
	PercentileWeight float64 `yaml:"percentile_weight" mapstructure:"percentile_weight"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOLARSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "solar-scout.db")
	v.SetDefault("engine.default_top_k", 5)
	v.SetDefault("engine.polygon_timeout_secs", 10)
	v.SetDefault("overpass.enabled", true)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.rate_limit_rps", 1.0)
	v.SetDefault("overpass.zone_ttl_hours", 1)
	v.SetDefault("land_price.timeout_secs", 5)
	v.SetDefault("land_price.cache_ttl_hours", 24)
	v.SetDefault("land_price.cache_max_entries", 10000)
	v.SetDefault("land_price.synthetic.base_usd_per_m2", 800)
	v.SetDefault("land_price.synthetic.urban_grad", 0.002)
	v.SetDefault("land_price.synthetic.lat_factor", 0.005)
	v.SetDefault("land_price.synthetic.lng_factor", 0.001)
	v.SetDefault("land_price.synthetic.floor_usd_per_m2", 50)
	v.SetDefault("bias.csi_weight", 0.6)
	v.SetDefault("bias.percentile_weight", 0.4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks cross-field constraints before a command runs.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	if c.Bias.CSIWeight < 0 || c.Bias.PercentileWeight < 0 {
		errs = append(errs, "bias weights must be >= 0")
	}
	if c.Bias.CSIWeight+c.Bias.PercentileWeight <= 0 {
		errs = append(errs, "bias weight sum must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
