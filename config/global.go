package config

import (
	"fmt"
	"os"
	"strings"

	"nftescrow/core/genesis"
)

const (
	EnvRPCToken     = "MARKET_RPC_TOKEN"
	EnvJWTSecret    = "MARKET_JWT_SECRET"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
)

// ApplyEnv overlays secrets and telemetry settings from the environment.
func (c *Config) ApplyEnv() {
	c.RPCToken = strings.TrimSpace(os.Getenv(EnvRPCToken))
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		c.JWTSecret = secret
	}
	if endpoint := strings.TrimSpace(os.Getenv(EnvOTLPEndpoint)); endpoint != "" {
		c.OTLPEndpoint = endpoint
	}
	if headers := strings.TrimSpace(os.Getenv(EnvOTLPHeaders)); headers != "" {
		c.OTLPHeaders = headers
	}
}

// Genesis returns the validated genesis spec: the GenesisFile when one is
// configured, otherwise the inline collections, allocations and treasury.
func (c *Config) Genesis() (*genesis.Spec, error) {
	if path := strings.TrimSpace(c.GenesisFile); path != "" {
		return genesis.LoadSpec(path)
	}
	spec := &genesis.Spec{
		Treasury:    c.Treasury,
		Collections: append([]genesis.CollectionSpec(nil), c.Collections...),
		Alloc:       make(map[string]map[string]string),
	}
	for i, alloc := range c.Allocations {
		addr := strings.TrimSpace(alloc.Address)
		if addr == "" {
			return nil, fmt.Errorf("allocations[%d]: address required", i)
		}
		if spec.Alloc[addr] == nil {
			spec.Alloc[addr] = make(map[string]string)
		}
		if _, dup := spec.Alloc[addr][alloc.PaymentType]; dup {
			return nil, fmt.Errorf("allocations[%d]: duplicate %s allocation for %s", i, alloc.PaymentType, addr)
		}
		spec.Alloc[addr][alloc.PaymentType] = alloc.Amount
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
