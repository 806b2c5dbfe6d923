package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio de contests.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Contest ContestConfig `yaml:"contest"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	AdminToken string `yaml:"admin_token"` // vacío = rutas de admin deshabilitadas
}

// OracleConfig controla el cliente de precios (CoinGecko).
type OracleConfig struct {
	BaseURL    string  `yaml:"base_url"`
	APIKey     string  `yaml:"api_key"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	MaxRetries int     `yaml:"max_retries"` // intentos totales por petición
	TopAssets  int     `yaml:"top_assets"`  // tamaño del listado seleccionable
}

// ContestConfig controla el ciclo de vida de los contests.
type ContestConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	MaxTeamsPerUser      int `yaml:"max_teams_per_user"`
	ResultsCacheSize     int `yaml:"results_cache_size"`
	ListingTTLSeconds    int `yaml:"listing_ttl_seconds"`
	ScoringWorkers       int `yaml:"scoring_workers"`       // 0 = NumCPU
	QuoteTTLSeconds      int `yaml:"quote_ttl_seconds"`     // reutilización de precios actuales en lecturas live
	QuoteTimeoutSeconds  int `yaml:"quote_timeout_seconds"` // tope de una consulta live al oráculo
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// SweepInterval devuelve el intervalo del sweeper como time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Contest.SweepIntervalSeconds) * time.Second
}

// ListingTTL devuelve cuánto se reutiliza el listado de mercado.
func (c *Config) ListingTTL() time.Duration {
	return time.Duration(c.Contest.ListingTTLSeconds) * time.Second
}

// QuoteTTL devuelve cuánto se reutiliza un precio actual en el leaderboard live.
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Contest.QuoteTTLSeconds) * time.Second
}

// QuoteTimeout devuelve el tope de espera de una consulta live al oráculo.
func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Contest.QuoteTimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"LOG_LEVEL":         &cfg.Log.Level,
		"LOG_FORMAT":        &cfg.Log.Format,
		"STORAGE_DSN":       &cfg.Storage.DSN,
		"COINGECKO_API_KEY": &cfg.Oracle.APIKey,
		"ADMIN_TOKEN":       &cfg.Server.AdminToken,
		"HTTP_ADDR":         &cfg.Server.Addr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config.Load: SWEEP_INTERVAL_SECONDS: %w", err)
		}
		cfg.Contest.SweepIntervalSeconds = n
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Oracle.RatePerSec <= 0 {
		cfg.Oracle.RatePerSec = 0.5 // plan demo: 30 req/min
	}
	if cfg.Oracle.MaxRetries <= 0 {
		cfg.Oracle.MaxRetries = 3
	}
	if cfg.Oracle.TopAssets <= 0 {
		cfg.Oracle.TopAssets = 100
	}
	if cfg.Contest.SweepIntervalSeconds <= 0 {
		cfg.Contest.SweepIntervalSeconds = 15
	}
	if cfg.Contest.MaxTeamsPerUser <= 0 {
		cfg.Contest.MaxTeamsPerUser = 5
	}
	if cfg.Contest.ResultsCacheSize <= 0 {
		cfg.Contest.ResultsCacheSize = 256
	}
	if cfg.Contest.ListingTTLSeconds <= 0 {
		cfg.Contest.ListingTTLSeconds = 600
	}
	if cfg.Contest.QuoteTTLSeconds <= 0 {
		cfg.Contest.QuoteTTLSeconds = 30
	}
	if cfg.Contest.QuoteTimeoutSeconds <= 0 {
		cfg.Contest.QuoteTimeoutSeconds = 5
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tokenpools.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
