package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"nftescrow/core/genesis"
)

type Config struct {
	ListenAddress      string                   `toml:"ListenAddress" yaml:"listen"`
	DataDir            string                   `toml:"DataDir" yaml:"data_dir"`
	DBBackend          string                   `toml:"DBBackend" yaml:"db_backend"`
	EventsDSN          string                   `toml:"EventsDSN" yaml:"events_dsn"`
	Environment        string                   `toml:"Environment" yaml:"environment"`
	LogFile            string                   `toml:"LogFile" yaml:"log_file"`
	LogMaxSizeMB       int                      `toml:"LogMaxSizeMB" yaml:"log_max_size_mb"`
	LogLevel           string                   `toml:"LogLevel" yaml:"log_level"`
	Owner              string                   `toml:"Owner" yaml:"owner"`
	MarketAddress      string                   `toml:"MarketAddress" yaml:"market_address"`
	Treasury           string                   `toml:"Treasury" yaml:"treasury"`
	GenesisFile        string                   `toml:"GenesisFile" yaml:"genesis_file"`
	RateLimitPerMinute int                      `toml:"RateLimitPerMinute" yaml:"rate_limit_per_minute"`
	RateLimitBurst     int                      `toml:"RateLimitBurst" yaml:"rate_limit_burst"`
	ReadTimeout        Duration                 `toml:"ReadTimeout" yaml:"read_timeout"`
	WriteTimeout       Duration                 `toml:"WriteTimeout" yaml:"write_timeout"`
	JWTSecret          string                   `toml:"JWTSecret" yaml:"jwt_secret"`
	OTLPEndpoint       string                   `toml:"OTLPEndpoint" yaml:"otlp_endpoint"`
	OTLPHeaders        string                   `toml:"OTLPHeaders" yaml:"otlp_headers"`
	OTLPInsecure       bool                     `toml:"OTLPInsecure" yaml:"otlp_insecure"`
	Collections        []genesis.CollectionSpec `toml:"Collections" yaml:"collections"`
	Allocations        []Allocation             `toml:"Allocations" yaml:"allocations"`

	// RPCToken is read from MARKET_RPC_TOKEN and never persisted.
	RPCToken string `toml:"-" yaml:"-"`
}

// Load loads the configuration from the given path. YAML is used for .yaml and
// .yml files, TOML otherwise. A missing TOML file is created with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if isYAML(path) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return createDefault(path)
	}

	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
		}
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh installation.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./market-data"
	}
	if strings.TrimSpace(c.DBBackend) == "" {
		c.DBBackend = "leveldb"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = 100
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.Owner) == "" {
		c.Owner = "0x0000000000000000000000000000000000000001"
	}
	if strings.TrimSpace(c.MarketAddress) == "" {
		c.MarketAddress = "0x00000000000000000000000000000000006d6b74"
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 120
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 20
	}
	if c.ReadTimeout.Duration <= 0 {
		c.ReadTimeout.Duration = defaultReadTimeout
	}
	if c.WriteTimeout.Duration <= 0 {
		c.WriteTimeout.Duration = defaultWriteTimeout
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
