package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormaliseAppliesDefaults(t *testing.T) {
	cfg := ProtocolConfig{}.Normalise()
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Equal(t, uint64(8000), cfg.RequiredSubmissionsBps)
	require.Equal(t, uint64(320), cfg.MaximumToleranceBps)
	require.Equal(t, int64(30*24*60*60), cfg.ResponseExpirySeconds)
	require.Equal(t, int64(30*24*60*60), cfg.TermsExpirySeconds)
	require.Equal(t, int64(5*60), cfg.SafetyIntervalSeconds)
	require.Equal(t, uint64(500), cfg.LiquidateRewardBps)
	require.Equal(t, "CRED", cfg.LendingTokenSymbol)
	require.Equal(t, "CCOL", cfg.CollateralTokenSymbol)
	require.Equal(t, []string{"manual"}, cfg.OraclePriority)
}

func TestNormaliseKeepsExplicitValues(t *testing.T) {
	cfg := ProtocolConfig{
		ChainID:                 5,
		RequiredSubmissionsBps:  6000,
		MaximumToleranceBps:     100,
		RequestRateLimitSeconds: 10,
		OraclePriority:          []string{"chainlink", "manual"},
	}.Normalise()
	require.Equal(t, uint64(5), cfg.ChainID)
	require.Equal(t, uint64(6000), cfg.RequiredSubmissionsBps)
	require.Equal(t, uint64(100), cfg.MaximumToleranceBps)
	require.Equal(t, int64(10), cfg.RequestRateLimitSeconds)
	require.Equal(t, []string{"chainlink", "manual"}, cfg.OraclePriority)
}

func TestNormaliseNegativeSafetyIntervalDisables(t *testing.T) {
	cfg := ProtocolConfig{SafetyIntervalSeconds: -1}.Normalise()
	require.Equal(t, int64(0), cfg.SafetyIntervalSeconds)

	cfg = ProtocolConfig{SafetyIntervalSeconds: 30}.Normalise()
	require.Equal(t, int64(30), cfg.SafetyIntervalSeconds)
}

func TestLoadEscrowSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crednet.toml")
	require.NoError(t, os.WriteFile(path, []byte("LendingEscrowSeed = \"1000000000000000000\"\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", cfg.LendingEscrowSeed)

	require.Empty(t, ProtocolConfig{}.Normalise().LendingEscrowSeed)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crednet.toml")
	require.NoError(t, os.WriteFile(path, []byte("ChainID = 7\nBogusKey = true\n"), 0o600))
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown key")
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crednet.toml")
	require.NoError(t, os.WriteFile(path, []byte("ChainID = 7\nMaximumToleranceBps = 640\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7), cfg.ChainID)
	require.Equal(t, uint64(640), cfg.MaximumToleranceBps)
	require.Equal(t, int64(30*24*60*60), cfg.TermsExpirySeconds)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
