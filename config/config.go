package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ProtocolConfig carries the tunable parameters consumed by the consensus and
// loans engines. All percentages are expressed in basis points and all windows
// in seconds so the values map directly onto the settings store.
type ProtocolConfig struct {
	ChainID                  uint64   `toml:"ChainID"`
	RequiredSubmissionsBps   uint64   `toml:"RequiredSubmissionsBps"`
	MaximumToleranceBps      uint64   `toml:"MaximumToleranceBps"`
	ResponseExpirySeconds    int64    `toml:"ResponseExpirySeconds"`
	TermsExpirySeconds       int64    `toml:"TermsExpirySeconds"`
	SafetyIntervalSeconds    int64    `toml:"SafetyIntervalSeconds"`
	LiquidateRewardBps       uint64   `toml:"LiquidateRewardBps"`
	RequestRateLimitSeconds  int64    `toml:"RequestRateLimitSeconds"`
	Paused                   bool     `toml:"Paused"`
	DataDir                  string   `toml:"DataDir"`
	LendingTokenSymbol       string   `toml:"LendingTokenSymbol"`
	CollateralTokenSymbol    string   `toml:"CollateralTokenSymbol"`
	// LendingEscrowSeed is a base-10 amount of lending token base units
	// minted into the lending escrow the first time the node starts on an
	// empty database. Without it no principal can ever be disbursed.
	LendingEscrowSeed        string   `toml:"LendingEscrowSeed"`
	OracleMaxQuoteAgeSeconds int64    `toml:"OracleMaxQuoteAgeSeconds"`
	OraclePriority           []string `toml:"OraclePriority"`
}

const (
	defaultRequiredSubmissionsBps  = 8000
	defaultMaximumToleranceBps     = 320
	defaultResponseExpirySeconds   = 30 * 24 * 60 * 60
	defaultTermsExpirySeconds      = 30 * 24 * 60 * 60
	defaultSafetyIntervalSeconds   = 5 * 60
	defaultLiquidateRewardBps      = 500
	defaultRequestRateLimitSeconds = 60 * 60
	defaultOracleMaxQuoteAge       = 120
)

// Load reads a TOML protocol configuration from disk and applies defaults.
// Unknown keys are rejected so typos surface at startup rather than as silent
// fallbacks.
func Load(path string) (*ProtocolConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	cfg := &ProtocolConfig{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}
	normalised := cfg.Normalise()
	return &normalised, nil
}

// Normalise applies defaults to unset values and returns the completed
// configuration. The receiver is not mutated.
func (c ProtocolConfig) Normalise() ProtocolConfig {
	cfg := c
	cfg.OraclePriority = append([]string{}, c.OraclePriority...)
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.RequiredSubmissionsBps == 0 {
		cfg.RequiredSubmissionsBps = defaultRequiredSubmissionsBps
	}
	if cfg.MaximumToleranceBps == 0 {
		cfg.MaximumToleranceBps = defaultMaximumToleranceBps
	}
	if cfg.ResponseExpirySeconds <= 0 {
		cfg.ResponseExpirySeconds = defaultResponseExpirySeconds
	}
	if cfg.TermsExpirySeconds <= 0 {
		cfg.TermsExpirySeconds = defaultTermsExpirySeconds
	}
	// TOML cannot distinguish an absent key from zero, so zero means unset
	// and a negative value opts out of the safety interval entirely.
	if cfg.SafetyIntervalSeconds == 0 {
		cfg.SafetyIntervalSeconds = defaultSafetyIntervalSeconds
	}
	if cfg.SafetyIntervalSeconds < 0 {
		cfg.SafetyIntervalSeconds = 0
	}
	if cfg.LiquidateRewardBps == 0 {
		cfg.LiquidateRewardBps = defaultLiquidateRewardBps
	}
	if cfg.RequestRateLimitSeconds <= 0 {
		cfg.RequestRateLimitSeconds = defaultRequestRateLimitSeconds
	}
	if cfg.OracleMaxQuoteAgeSeconds <= 0 {
		cfg.OracleMaxQuoteAgeSeconds = defaultOracleMaxQuoteAge
	}
	if cfg.LendingTokenSymbol == "" {
		cfg.LendingTokenSymbol = "CRED"
	}
	if cfg.CollateralTokenSymbol == "" {
		cfg.CollateralTokenSymbol = "CCOL"
	}
	if len(cfg.OraclePriority) == 0 {
		cfg.OraclePriority = []string{"manual"}
	}
	return cfg
}
