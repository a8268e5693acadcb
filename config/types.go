package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
)

// Allocation seeds an address with a starting balance in one payment type.
type Allocation struct {
	Address     string `toml:"Address" yaml:"address"`
	PaymentType string `toml:"PaymentType" yaml:"payment_type"`
	Amount      string `toml:"Amount" yaml:"amount"`
}

// Duration wraps time.Duration to support human readable values in both TOML
// and YAML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration strings.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration for TOML encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	return d.UnmarshalText([]byte(value.Value))
}
