package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frankdfr96/MEVresearch/units"
)

func TestLoadConfig(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "tipsim")
	require.NoError(t, os.MkdirAll(dataDir, 0700))
	const c = `
collect:
  lastblock: "12500000"
  daysback: 2
hybrid:
  bribespercentage: 50
  fixedgasfee: true
apprpc:
  port: "9000"
debug: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, defaultConfigFileName), []byte(c), 0600))

	cfg, err := loadConfig("", dataDir)
	require.NoError(t, err)
	require.Equal(t, "12500000", cfg.Collect.LastBlock)
	require.Equal(t, 2., cfg.Collect.DaysBack)
	require.Equal(t, 10000, cfg.Collect.PageSize)
	require.Equal(t, 50., cfg.Hybrid.BribesPercentage)
	require.True(t, cfg.Hybrid.FixedGasFee)
	require.Equal(t, units.Gwei(50), cfg.Hybrid.InitGasFee)
	require.Equal(t, defaultParams.GasTarget, cfg.GasTarget)
	require.Equal(t, "9000", cfg.AppRPC.Port)
	require.Equal(t, "localhost", cfg.AppRPC.Host)
	require.True(t, cfg.Debug)
	require.Equal(t, dataDir, cfg.DataDir)
	require.Equal(t, filepath.Join(dataDir, defaultLogFileName), cfg.LogFile)
	require.Empty(t, cfg.Collect.PricesFile)

	// Defaults are not modified
	require.Equal(t, 90., defaultConfig.Hybrid.BribesPercentage)
}

func TestLoadConfigEnv(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "new")
	t.Setenv(dataDirEnv, dataDir)

	pricesFile := filepath.Join(dataDir, defaultPricesFileName)
	cfg, err := loadConfig("", "")
	require.NoError(t, err)
	require.Equal(t, dataDir, cfg.DataDir)
	require.DirExists(t, dataDir)
	require.Empty(t, cfg.Collect.PricesFile)

	// The prices export in the datadir is picked up
	require.NoError(t, os.WriteFile(pricesFile, nil, 0600))
	cfg, err = loadConfig("", "")
	require.NoError(t, err)
	require.Equal(t, pricesFile, cfg.Collect.PricesFile)

	configFile := filepath.Join(t.TempDir(), "other.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("collect:\n  pricesfile: prices.csv\n"), 0600))
	t.Setenv(configFileEnv, configFile)
	cfg, err = loadConfig("", "")
	require.NoError(t, err)
	require.Equal(t, "prices.csv", cfg.Collect.PricesFile)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	// Explicit config file must exist
	_, err := loadConfig(filepath.Join(dir, "nonexistent.yml"), dir)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("hybrid:\n  bribes: 50\n"), 0600))
	_, err = loadConfig(bad, dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(bad, []byte("daysback: [1"), 0600))
	_, err = loadConfig(bad, dir)
	require.Error(t, err)
}
