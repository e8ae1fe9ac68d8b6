package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Flash   FlashConfig   `mapstructure:"flash"`
	History HistoryConfig `mapstructure:"history"`
	Reader  ReaderConfig  `mapstructure:"reader"`
	Poll    PollConfig    `mapstructure:"poll"`
	Console ConsoleConfig `mapstructure:"console"`
}

// HTTPConfig holds the REST listener settings
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// FlashConfig holds the persistence sector location
type FlashConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig holds the scan-event log location
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// ReaderConfig selects the card reader backend
type ReaderConfig struct {
	// Mode is "sim" for the software reader; hardware backends register
	// under their driver name.
	Mode string `mapstructure:"mode"`
}

// PollConfig holds the shared poll loop settings
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ConsoleConfig holds the operator console settings
type ConsoleConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// CardTimeout bounds the synchronous wait of console-driven operations.
	CardTimeout time.Duration `mapstructure:"cardTimeout"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("flash.path", "data/flash.bin")
	v.SetDefault("history.path", "data/history")
	v.SetDefault("reader.mode", "sim")
	v.SetDefault("poll.interval", 100*time.Millisecond)
	v.SetDefault("console.enabled", true)
	v.SetDefault("console.cardTimeout", 10*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
