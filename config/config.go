package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de polysignal.
type Config struct {
	Estimator EstimatorConfig `yaml:"estimator"`
	News      NewsConfig      `yaml:"news"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// EstimatorConfig configura el servicio LLM (API compatible con OpenAI).
type EstimatorConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"` // mejor por env: ESTIMATOR_API_KEY o GROQ_API_KEY
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// NewsConfig configura el proveedor de contexto (NewsAPI).
type NewsConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"` // vacío = sin contexto
	MaxItems       int    `yaml:"max_items"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IndexerConfig configura el GraphQL del indexer de mercados.
type IndexerConfig struct {
	GraphQLURL     string `yaml:"graphql_url"`
	FetchLimit     int    `yaml:"fetch_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// BacktestConfig controla el simulador. Payout y umbral de YES son
// parámetros del modelo simplificado, no valores de mercado.
type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	BetSizePercent  float64 `yaml:"bet_size_percent"`
	MaxMarkets      int     `yaml:"max_markets"`
	MinBet          float64 `yaml:"min_bet"`
	WinMultiplier   float64 `yaml:"win_multiplier"`
	LossFraction    float64 `yaml:"loss_fraction"`
	BetYesThreshold float64 `yaml:"bet_yes_threshold"`
	RiskLevel       string  `yaml:"risk_level"`
	EstimateWorkers int     `yaml:"estimate_workers"`
	SkipDegraded    bool    `yaml:"skip_degraded"`
	WithContext     bool    `yaml:"with_context"` // pedir noticias también en el backtest
}

// ServerConfig controla el API HTTP.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig controla dónde se archivan los backtests.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:" o vacío para desactivar
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse decodifica YAML y aplica env y defaults. Load lo usa tras leer el archivo.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// EstimatorTimeout devuelve el timeout por llamada al LLM.
func (c *Config) EstimatorTimeout() time.Duration {
	return time.Duration(c.Estimator.TimeoutSeconds) * time.Second
}

// NewsTimeout devuelve el timeout por llamada a NewsAPI.
func (c *Config) NewsTimeout() time.Duration {
	return time.Duration(c.News.TimeoutSeconds) * time.Second
}

// IndexerTimeout devuelve el timeout por llamada al indexer.
func (c *Config) IndexerTimeout() time.Duration {
	return time.Duration(c.Indexer.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Estimator.APIKey = v
	}
	// ESTIMATOR_API_KEY gana sobre GROQ_API_KEY
	if v := os.Getenv("ESTIMATOR_API_KEY"); v != "" {
		cfg.Estimator.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
	if v := os.Getenv("INDEXER_GRAPHQL_URL"); v != "" {
		cfg.Indexer.GraphQLURL = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Estimator.BaseURL == "" {
		cfg.Estimator.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Estimator.Model == "" {
		cfg.Estimator.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Estimator.Temperature <= 0 {
		cfg.Estimator.Temperature = 0.3
	}
	if cfg.Estimator.MaxTokens <= 0 {
		cfg.Estimator.MaxTokens = 300
	}
	if cfg.Estimator.TimeoutSeconds <= 0 {
		cfg.Estimator.TimeoutSeconds = 60 // el LLM tarda más que las APIs de datos
	}

	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://newsapi.org"
	}
	if cfg.News.MaxItems <= 0 {
		cfg.News.MaxItems = 10
	}
	if cfg.News.Language == "" {
		cfg.News.Language = "en"
	}
	if cfg.News.TimeoutSeconds <= 0 {
		cfg.News.TimeoutSeconds = 30
	}

	if cfg.Indexer.GraphQLURL == "" {
		cfg.Indexer.GraphQLURL = "http://localhost:8080/v1/graphql"
	}
	if cfg.Indexer.FetchLimit <= 0 {
		cfg.Indexer.FetchLimit = 100
	}
	if cfg.Indexer.TimeoutSeconds <= 0 {
		cfg.Indexer.TimeoutSeconds = 30
	}

	if cfg.Backtest.InitialCapital <= 0 {
		cfg.Backtest.InitialCapital = 100
	}
	if cfg.Backtest.BetSizePercent <= 0 || cfg.Backtest.BetSizePercent > 100 {
		cfg.Backtest.BetSizePercent = 5
	}
	if cfg.Backtest.MaxMarkets <= 0 {
		cfg.Backtest.MaxMarkets = 20
	}
	if cfg.Backtest.MinBet <= 0 {
		cfg.Backtest.MinBet = 1
	}
	if cfg.Backtest.WinMultiplier <= 0 {
		cfg.Backtest.WinMultiplier = 1 // pago plano: +100% de la apuesta
	}
	if cfg.Backtest.LossFraction <= 0 {
		cfg.Backtest.LossFraction = 1
	}
	if cfg.Backtest.BetYesThreshold <= 0 || cfg.Backtest.BetYesThreshold >= 1 {
		cfg.Backtest.BetYesThreshold = 0.5
	}
	if cfg.Backtest.RiskLevel == "" {
		cfg.Backtest.RiskLevel = "very-high"
	}
	if cfg.Backtest.EstimateWorkers <= 0 {
		cfg.Backtest.EstimateWorkers = 1
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
