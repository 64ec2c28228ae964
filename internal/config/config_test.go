package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingSymbols(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exchange.Symbols = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoSymbols)
}

func TestValidateRejectsZeroTickSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exchange.Symbols = []SymbolConfig{{Symbol: "ETHUSDT", TickSize: 0, LotSize: 0.001}}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSymbolConfig)
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
