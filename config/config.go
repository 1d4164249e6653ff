package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el capital y los límites de riesgo.
type BacktestConfig struct {
	InitialCapital       float64 `yaml:"initial_capital"`
	RiskPerTrade         float64 `yaml:"risk_per_trade"`
	MaxPositionPct       float64 `yaml:"max_position_pct"`
	AbsoluteMaxContracts int     `yaml:"absolute_max_contracts"`
	MaxDrawdownPct       float64 `yaml:"max_drawdown_pct"`
	MaxLossPerTradePct   float64 `yaml:"max_loss_per_trade_pct"`
	MaxTrades            int     `yaml:"max_trades"`          // cap de muestra de señales
	ExitToleranceDays    int     `yaml:"exit_tolerance_days"` // gap máximo del fallback de salida
	Workers              int     `yaml:"workers"`             // 0 = resolución secuencial
	StaticSizing         bool    `yaml:"static_sizing"`       // true = quantity 1 sin sizer
}

// DataConfig apunta a los CSV de entrada.
type DataConfig struct {
	SignalsPath    string `yaml:"signals_path"`
	MarketDataPath string `yaml:"market_data_path"`
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del .env sobreescriben los del YAML. La validación
// de parámetros de riesgo es fatal: una config inválida no arranca.
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

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza parámetros de riesgo inválidos.
func (c *Config) Validate() error {
	b := c.Backtest
	if b.InitialCapital <= 0 {
		return fmt.Errorf("config.Validate: initial_capital %.2f must be positive", b.InitialCapital)
	}
	if b.RiskPerTrade <= 0 || b.RiskPerTrade > 1 {
		return fmt.Errorf("config.Validate: risk_per_trade %.4f must be in (0,1]", b.RiskPerTrade)
	}
	if b.MaxPositionPct <= 0 || b.MaxPositionPct > 1 {
		return fmt.Errorf("config.Validate: max_position_pct %.4f must be in (0,1]", b.MaxPositionPct)
	}
	if b.MaxDrawdownPct <= 0 || b.MaxDrawdownPct >= 1 {
		return fmt.Errorf("config.Validate: max_drawdown_pct %.4f must be in (0,1)", b.MaxDrawdownPct)
	}
	if b.MaxLossPerTradePct <= 0 || b.MaxLossPerTradePct > 1 {
		return fmt.Errorf("config.Validate: max_loss_per_trade_pct %.4f must be in (0,1]", b.MaxLossPerTradePct)
	}
	if b.AbsoluteMaxContracts <= 0 {
		return fmt.Errorf("config.Validate: absolute_max_contracts %d must be positive", b.AbsoluteMaxContracts)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si
// están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SIGNALS_PATH"); v != "" {
		cfg.Data.SignalsPath = v
	}
	if v := os.Getenv("MARKET_DATA_PATH"); v != "" {
		cfg.Data.MarketDataPath = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialCapital = f
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.InitialCapital == 0 {
		cfg.Backtest.InitialCapital = 100000
	}
	if cfg.Backtest.RiskPerTrade == 0 {
		cfg.Backtest.RiskPerTrade = 0.01
	}
	if cfg.Backtest.MaxPositionPct == 0 {
		cfg.Backtest.MaxPositionPct = 0.05
	}
	if cfg.Backtest.AbsoluteMaxContracts == 0 {
		cfg.Backtest.AbsoluteMaxContracts = 100
	}
	if cfg.Backtest.MaxDrawdownPct == 0 {
		cfg.Backtest.MaxDrawdownPct = 0.10
	}
	if cfg.Backtest.MaxLossPerTradePct == 0 {
		cfg.Backtest.MaxLossPerTradePct = 0.10
	}
	if cfg.Backtest.MaxTrades == 0 {
		cfg.Backtest.MaxTrades = 1000
	}
	if cfg.Backtest.ExitToleranceDays == 0 {
		cfg.Backtest.ExitToleranceDays = 5
	}
	if cfg.Data.SignalsPath == "" {
		cfg.Data.SignalsPath = "data/signals_mispricing.csv"
	}
	if cfg.Data.MarketDataPath == "" {
		cfg.Data.MarketDataPath = "data/clean/SPY_2023_eod.csv"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "voltrader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
