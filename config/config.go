// Package config loads client configuration from a TOML file and
// TICKETMINT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vitwit/ticketmint/types"
	"github.com/vitwit/ticketmint/utils"
)

const (
	DefaultContractAddress    = "0xc4Ab0d9FAcFAc11104E640718dCaB4df782428CC"
	DefaultVerificationAPI    = "https://poh-api.linea.build/poh/v2"
	DefaultVerificationPortal = "https://linea.build/hub/apps/sumsub-reusable-identity"
	DefaultMaxQuantity        = 10
	DefaultTimeout            = 30 * time.Second

	EnvPrefix = "TICKETMINT_"
)

// Default returns the Linea mainnet sale configuration.
func Default() *types.Config {
	chain := types.LineaMainnet
	chain.RPCURLs = append([]string(nil), chain.RPCURLs...)
	chain.ExplorerURLs = append([]string(nil), chain.ExplorerURLs...)

	return &types.Config{
		Chain:              chain,
		ContractAddress:    DefaultContractAddress,
		VerificationAPI:    DefaultVerificationAPI,
		VerificationPortal: DefaultVerificationPortal,
		MaxQuantity:        DefaultMaxQuantity,
		DefaultTimeout:     DefaultTimeout,
		LogLevel:           "info",
		LogFormat:          "console",
		AutoConnect:        true,
	}
}

// Load starts from Default, overlays the TOML file at path when path is not
// empty, applies environment overrides and validates the result.
func Load(path string) (*types.Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parsing TOML %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides cfg with TICKETMINT_* variables found through lookup.
func ApplyEnv(cfg *types.Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get("RPC_URL"); ok {
		cfg.Chain.RPCURLs = []string{v}
	}
	if v, ok := get("CONTRACT_ADDRESS"); ok {
		cfg.ContractAddress = v
	}
	if v, ok := get("VERIFICATION_API"); ok {
		cfg.VerificationAPI = v
	}
	if v, ok := get("VERIFICATION_PORTAL"); ok {
		cfg.VerificationPortal = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := get("MAX_QUANTITY"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_QUANTITY: %w", EnvPrefix, err)
		}
		cfg.MaxQuantity = n
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		cfg.DefaultTimeout = d
	}
	if v, ok := get("ENABLE_METRICS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sENABLE_METRICS: %w", EnvPrefix, err)
		}
		cfg.EnableMetrics = b
	}
	if v, ok := get("AUTO_CONNECT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sAUTO_CONNECT: %w", EnvPrefix, err)
		}
		cfg.AutoConnect = b
	}
	return nil
}
