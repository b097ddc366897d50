package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	col "github.com/frankdfr96/MEVresearch/collect"
	"github.com/frankdfr96/MEVresearch/collect/flashbots"
	"github.com/frankdfr96/MEVresearch/sim"
)

const (
	defaultConfigFileName = "config.yml"
	defaultPricesFileName = "export-AvgGasPrice.csv"
	configFileEnv         = "TIPSIM_CONFIG"
	dataDirEnv            = "TIPSIM_DATADIR"
)

var (
	defaultParams = Params{
		GasTarget: sim.GasTargetConfig{
			Target:       200000,
			InitFee:      100,
			TimeToDouble: 6,
		},
		OneOff: sim.OneOffConfig{
			InitFee:      0.1,
			TimeToDouble: 6,
			TimeToHalf:   7,
		},
		Hybrid: sim.HybridConfig{
			InitOneOffFee:     0.1,
			InitGasFee:        50,
			Target:            200000,
			TimeToDouble:      6,
			TimeToHalf:        7,
			GasDoublingBlocks: 6,
			BribesPercentage:  90,
		},
	}
	defaultBacktestConfig = BacktestConfig{
		Collect: col.Config{
			DaysBack:   30,
			PageSize:   10000,
			PriceStart: "2021-04-22",
			PriceEnd:   "2021-06-24",
		},
		Params: defaultParams,
	}
	defaultConfig = config{
		BacktestConfig: defaultBacktestConfig,
		Flashbots: flashbots.Config{
			URL:       flashbots.DefaultURL,
			RateLimit: 1,
			UserAgent: "tipsim/" + version,
			Timeout:   60,
		},
		AppRPC: AppRPCConfig{
			Host: "localhost",
			Port: "8360",
		},
		DataDir: btcutil.AppDataDir("tipsim", false),
	}
	defaultConfigFile  = filepath.Join(defaultConfig.DataDir, defaultConfigFileName)
	defaultLogFileName = "tipsim.log"
)

type config struct {
	BacktestConfig `yaml:",inline"`
	Flashbots      flashbots.Config `yaml:"flashbots" json:"flashbots"`
	AppRPC         AppRPCConfig     `yaml:"apprpc" json:"apprpc"`
	DataDir        string           `yaml:"datadir" json:"datadir"`
	LogFile        string           `yaml:"logfile" json:"logfile"`
	Debug          bool             `yaml:"debug" json:"debug"`
}

type AppRPCConfig struct {
	Host string `json:"host" yaml:"host"`
	Port string `json:"port" yaml:"port"`
}

// loadConfig loads the config. The input arguments specify the path to the
// config file / data directory.
// They can also be specified through env variables (configFileEnv / dataDirEnv),
// with lower precedence. Env variables are also read from a .env file in the
// working directory, if there is one.
// If not specified, they are set to default values.
func loadConfig(configFile, dataDir string) (config, error) {
	cfg := defaultConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if configFile == "" {
		configFile = os.Getenv(configFileEnv)
	}
	if dataDir == "" {
		dataDir = os.Getenv(dataDirEnv)
	}

	if configFile != "" {
		// Config file was specified explicitly, so return an error if it
		// couldn't be read.
		if c, err := os.ReadFile(configFile); err != nil {
			return cfg, err
		} else if err := yaml.UnmarshalStrict(c, &cfg); err != nil {
			return cfg, err
		}
	} else {
		// Check the default config file location. No error if it couldn't be
		// read, but error if the yaml could not be unmarshaled.
		if dataDir == "" {
			configFile = defaultConfigFile
		} else {
			configFile = filepath.Join(dataDir, defaultConfigFileName)
		}
		if c, err := os.ReadFile(configFile); err == nil {
			if err := yaml.UnmarshalStrict(c, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	// dataDir specified by env or input argument takes precedence
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, defaultLogFileName)
	}

	// Use the prices export in the datadir, if no other file was given.
	if cfg.Collect.PricesFile == "" {
		f := filepath.Join(cfg.DataDir, defaultPricesFileName)
		if _, err := os.Stat(f); err == nil {
			cfg.Collect.PricesFile = f
		}
	}

	// Create the datadir if not exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return cfg, err
	}

	return cfg, nil
}
