// Package config loads lottod's node configuration from
// <home>/config/config.yaml, LOTTOD_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dbm "github.com/cosmos/cosmos-db"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"onchainlotto/internal/lottery"
)

const (
	EnvPrefix = "LOTTOD"

	DirName  = "config"
	FileName = "config.yaml"
)

type ABCI struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Transport string `mapstructure:"transport" yaml:"transport"`
}

type DB struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // plain|json
}

// Lottery holds the params given to pools whose create_pool tx leaves them unset.
type Lottery struct {
	MaxPlayers  uint16 `mapstructure:"max_players" yaml:"max_players"`
	TicketPrice uint64 `mapstructure:"ticket_price" yaml:"ticket_price"`
	PoolCut     string `mapstructure:"pool_cut" yaml:"pool_cut"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

type Recorder struct {
	// SQLitePath is resolved against the home directory when relative. Empty
	// disables the round history.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type Config struct {
	Home string `mapstructure:"-" yaml:"-"`

	ABCI     ABCI     `mapstructure:"abci" yaml:"abci"`
	DB       DB       `mapstructure:"db" yaml:"db"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Lottery  Lottery  `mapstructure:"lottery" yaml:"lottery"`
	Metrics  Metrics  `mapstructure:"metrics" yaml:"metrics"`
	Recorder Recorder `mapstructure:"recorder" yaml:"recorder"`
}

func Default() Config {
	return Config{
		ABCI: ABCI{Addr: "tcp://127.0.0.1:26658", Transport: "socket"},
		DB:   DB{Backend: string(dbm.GoLevelDBBackend)},
		Log:  Log{Level: "info", Format: "plain"},
		Lottery: Lottery{
			MaxPlayers:  lottery.DefaultMaxPlayers,
			TicketPrice: lottery.DefaultTicketPrice,
			PoolCut:     lottery.DefaultPoolCut,
		},
		Metrics:  Metrics{Enabled: false, Addr: "127.0.0.1:26660"},
		Recorder: Recorder{SQLitePath: "data/history.db"},
	}
}

// Path is the config file location under home.
func Path(home string) string {
	return filepath.Join(home, DirName, FileName)
}

// SetDefaults registers every key of Default() on v so env overrides work
// for keys missing from the file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("abci.addr", d.ABCI.Addr)
	v.SetDefault("abci.transport", d.ABCI.Transport)
	v.SetDefault("db.backend", d.DB.Backend)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("lottery.max_players", d.Lottery.MaxPlayers)
	v.SetDefault("lottery.ticket_price", d.Lottery.TicketPrice)
	v.SetDefault("lottery.pool_cut", d.Lottery.PoolCut)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("recorder.sqlite_path", d.Recorder.SQLitePath)
}

// Load reads <home>/config/config.yaml (if present) into v, then applies
// LOTTOD_* environment overrides and any flags already bound to v.
func Load(v *viper.Viper, home string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := Path(home)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Home = home
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ABCI.Addr == "" {
		return fmt.Errorf("abci.addr is required")
	}
	switch c.ABCI.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("abci.transport must be socket or grpc, got %q", c.ABCI.Transport)
	}
	switch dbm.BackendType(c.DB.Backend) {
	case dbm.GoLevelDBBackend, dbm.PebbleDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("db.backend %q is not supported", c.DB.Backend)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "plain", "json":
	default:
		return fmt.Errorf("log.format must be plain or json, got %q", c.Log.Format)
	}
	if _, err := c.LotteryParams(); err != nil {
		return fmt.Errorf("lottery: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

func (c *Config) LogLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func (c *Config) LotteryParams() (lottery.Params, error) {
	return lottery.NewParams(c.Lottery.MaxPlayers, c.Lottery.TicketPrice, c.Lottery.PoolCut)
}

// SQLitePath returns the absolute history database path, or "" when disabled.
func (c *Config) SQLitePath() string {
	p := c.Recorder.SQLitePath
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

// WriteDefault writes Default() to <home>/config/config.yaml. An existing
// file is kept unless overwrite is set.
func WriteDefault(home string, overwrite bool) (string, error) {
	path := Path(home)
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir config: %w", err)
	}
	b, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
