package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/genesis"
	"nftescrow/storage"
)

// Validate checks addresses, backend names and limits.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DBBackend)) {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("DBBackend: unsupported backend %q", c.DBBackend)
	}
	owner, err := genesis.ParseAddress(c.Owner)
	if err != nil {
		return fmt.Errorf("Owner: %w", err)
	}
	marketAddr, err := genesis.ParseAddress(c.MarketAddress)
	if err != nil {
		return fmt.Errorf("MarketAddress: %w", err)
	}
	if owner == (common.Address{}) || marketAddr == (common.Address{}) {
		return fmt.Errorf("Owner and MarketAddress must not be zero")
	}
	if owner == marketAddr {
		return fmt.Errorf("Owner must differ from MarketAddress")
	}
	if strings.TrimSpace(c.Treasury) != "" {
		if _, err := genesis.ParseAddress(c.Treasury); err != nil {
			return fmt.Errorf("Treasury: %w", err)
		}
	}
	if c.RateLimitBurst <= 0 || c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Identities returns the parsed owner and marketplace addresses.
func (c *Config) Identities() (owner, marketAddr common.Address, err error) {
	if owner, err = genesis.ParseAddress(c.Owner); err != nil {
		return common.Address{}, common.Address{}, err
	}
	if marketAddr, err = genesis.ParseAddress(c.MarketAddress); err != nil {
		return common.Address{}, common.Address{}, err
	}
	return owner, marketAddr, nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	raw := strings.TrimSpace(c.LogLevel)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("LogLevel: %w", err)
	}
	return level, nil
}
