package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SourceREST    = "rest"
	SourceGraphQL = "graphql"

	ModeLedger = "ledger"
	ModeLive   = "live"

	DefaultLedgerOutput = "token_balances.csv"
	DefaultLiveOutput   = "token_holders.csv"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Config is built once at startup and passed to constructors.
type Config struct {
	Token    TokenConfig    `mapstructure:"token"`
	Source   SourceConfig   `mapstructure:"source"`
	REST     RESTConfig     `mapstructure:"rest"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Output   OutputConfig   `mapstructure:"output"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Decimals int    `mapstructure:"decimals"` // 18 for most ERC-20 tokens
}

// SourceConfig selects where transfers come from and how balances are derived.
// An empty Mode is resolved from Kind: ledger for rest, live for graphql.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	Mode string `mapstructure:"mode"`
}

type RESTConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	PageSize  int           `mapstructure:"page_size"`
	PageDelay time.Duration `mapstructure:"page_delay"`
	MaxPages  int           `mapstructure:"max_pages"` // 0 disables the cap
}

type GraphQLConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	APIKey        string `mapstructure:"api_key"`
	Network       string `mapstructure:"network"`
	TransferLimit int    `mapstructure:"transfer_limit"`
}

type EnrichConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second
	RateBurst       int           `mapstructure:"rate_burst"`
	MaxResponseSize int64         `mapstructure:"max_response_size"`
}

type OutputConfig struct {
	Path      string `mapstructure:"path"`
	ChartPath string `mapstructure:"chart_path"`
	ChartTop  int    `mapstructure:"chart_top"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Enabled reports whether a report should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

// LoadOptions tells Load where to look. Empty fields fall back to
// config.yaml and .env in the working directory.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
	Flags      *pflag.FlagSet
}

// LoadConfig reads configuration, each layer overriding the previous one:
// 1. defaults
// 2. config.yaml (or ConfigFile)
// 3. .env file
// 4. environment variables
// 5. command line flags
func LoadConfig(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	setupEnvAliases(v)

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("token.address", "")
	v.SetDefault("token.decimals", 18)

	v.SetDefault("source.kind", SourceREST)
	v.SetDefault("source.mode", "")

	v.SetDefault("rest.base_url", "")
	v.SetDefault("rest.page_size", 100)
	v.SetDefault("rest.page_delay", 200*time.Millisecond)
	v.SetDefault("rest.max_pages", 10000)

	v.SetDefault("graphql.endpoint", "https://graphql.bitquery.io")
	v.SetDefault("graphql.api_key", "")
	v.SetDefault("graphql.network", "ethereum")
	v.SetDefault("graphql.transfer_limit", 1000)

	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.max_attempts", 3)
	v.SetDefault("enrich.base_delay", 300*time.Millisecond)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.rate_limit", 10.0)
	v.SetDefault("http.rate_burst", 20)
	v.SetDefault("http.max_response_size", 10*1024*1024) // 10MB

	v.SetDefault("output.path", "")
	v.SetDefault("output.chart_path", "")
	v.SetDefault("output.chart_top", 20)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "debug")
}

func setupEnvAliases(v *viper.Viper) {
	// Token
	v.BindEnv("token.address", "TOKEN_ADDRESS")
	v.BindEnv("token.decimals", "TOKEN_DECIMALS")

	// Source
	v.BindEnv("source.kind", "SNAPSHOT_SOURCE")
	v.BindEnv("source.mode", "BALANCE_MODE")

	// REST
	v.BindEnv("rest.base_url", "REST_API_BASE_URL")
	v.BindEnv("rest.page_size", "REST_PAGE_SIZE")
	v.BindEnv("rest.max_pages", "REST_MAX_PAGES")

	// Bitquery
	v.BindEnv("graphql.api_key", "BITQUERY_API_KEY")
	v.BindEnv("graphql.endpoint", "BITQUERY_ENDPOINT")
	v.BindEnv("graphql.network", "BITQUERY_NETWORK")

	// Output
	v.BindEnv("output.path", "OUTPUT_PATH")
	v.BindEnv("output.chart_path", "CHART_PATH")

	// Telegram
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// Log
	v.BindEnv("log.dir", "LOG_DIR")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"token":          "token.address",
	"decimals":       "token.decimals",
	"source":         "source.kind",
	"mode":           "source.mode",
	"base-url":       "rest.base_url",
	"page-size":      "rest.page_size",
	"max-pages":      "rest.max_pages",
	"transfer-limit": "graphql.transfer_limit",
	"batch-size":     "enrich.batch_size",
	"output":         "output.path",
	"chart":          "output.chart_path",
	"log-level":      "log.level",
}

// RegisterFlags adds the snapshot flags to fs. A flag only wins over the
// environment and config file when it is set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("token", "", "Token contract address (env: TOKEN_ADDRESS)")
	fs.Int("decimals", 18, "Token decimals used to scale raw values (env: TOKEN_DECIMALS)")
	fs.String("source", "", "Transfer source: rest or graphql (env: SNAPSHOT_SOURCE)")
	fs.String("mode", "", "Balance mode: ledger or live (env: BALANCE_MODE)")
	fs.String("base-url", "", "REST indexer base URL (env: REST_API_BASE_URL)")
	fs.Int("page-size", 100, "Transfers per REST page")
	fs.Int("max-pages", 10000, "Safety cap on REST pages, 0 disables it")
	fs.Int("transfer-limit", 1000, "Most recent transfers fetched from GraphQL")
	fs.Int("batch-size", 10, "Concurrent balance lookups per batch")
	fs.String("output", "", "CSV output path (env: OUTPUT_PATH)")
	fs.String("chart", "", "Optional PNG chart path (env: CHART_PATH)")
	fs.String("log-level", "", "File log level (env: LOG_LEVEL)")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Token.Address = strings.TrimSpace(c.Token.Address)
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.Source.Mode = strings.ToLower(strings.TrimSpace(c.Source.Mode))
	c.REST.BaseURL = strings.TrimRight(strings.TrimSpace(c.REST.BaseURL), "/")
	c.GraphQL.APIKey = strings.TrimSpace(c.GraphQL.APIKey)

	if c.Source.Mode == "" {
		if c.Source.Kind == SourceGraphQL {
			c.Source.Mode = ModeLive
		} else {
			c.Source.Mode = ModeLedger
		}
	}
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath(c.Source.Mode)
	}
}

// DefaultOutputPath returns the CSV file name used when none is configured.
func DefaultOutputPath(mode string) string {
	if mode == ModeLive {
		return DefaultLiveOutput
	}
	return DefaultLedgerOutput
}

// Validate checks the settings that do not need the network.
// The token address itself is checked by the snapshot run.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceREST, SourceGraphQL:
	default:
		return fmt.Errorf("%w: source.kind must be rest or graphql, got %q", ErrInvalidConfig, c.Source.Kind)
	}
	switch c.Source.Mode {
	case ModeLedger, ModeLive:
	default:
		return fmt.Errorf("%w: source.mode must be ledger or live, got %q", ErrInvalidConfig, c.Source.Mode)
	}
	if c.Source.Kind == SourceGraphQL && c.Source.Mode == ModeLedger {
		return fmt.Errorf("%w: the graphql source carries no transfer values, use mode live", ErrInvalidConfig)
	}

	if c.Source.Kind == SourceREST && c.REST.BaseURL == "" {
		return fmt.Errorf("%w: rest.base_url is required for the rest source (env: REST_API_BASE_URL)", ErrInvalidConfig)
	}
	if (c.Source.Kind == SourceGraphQL || c.Source.Mode == ModeLive) && c.GraphQL.APIKey == "" {
		return fmt.Errorf("%w: BITQUERY_API_KEY is required for %s source in %s mode",
			ErrMissingCredential, c.Source.Kind, c.Source.Mode)
	}

	if c.Token.Decimals < 0 || c.Token.Decimals > 36 {
		return fmt.Errorf("%w: token.decimals must be between 0 and 36, got %d", ErrInvalidConfig, c.Token.Decimals)
	}
	if c.REST.PageSize <= 0 {
		return fmt.Errorf("%w: rest.page_size must be positive", ErrInvalidConfig)
	}
	if c.REST.MaxPages < 0 {
		return fmt.Errorf("%w: rest.max_pages must not be negative", ErrInvalidConfig)
	}
	if c.GraphQL.TransferLimit <= 0 {
		return fmt.Errorf("%w: graphql.transfer_limit must be positive", ErrInvalidConfig)
	}
	if c.Enrich.BatchSize <= 0 || c.Enrich.MaxAttempts <= 0 {
		return fmt.Errorf("%w: enrich.batch_size and enrich.max_attempts must be positive", ErrInvalidConfig)
	}
	if c.Enrich.BaseDelay <= 0 {
		return fmt.Errorf("%w: enrich.base_delay must be positive", ErrInvalidConfig)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
