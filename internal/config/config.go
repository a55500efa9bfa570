// Package config resolves gma2 settings from flags, environment (including
// an optional .env file), a TOML file and defaults, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = "gma2"
	envPrefix  = "GMA"

	// MaskedPassword replaces the password when a config is printed.
	MaskedPassword = "********"
)

// Keys, as used in the config file and as flag names.
const (
	KeyHost            = "host"
	KeyPort            = "port"
	KeyMonitorPort     = "monitor_port"
	KeyUser            = "user"
	KeyPassword        = "password"
	KeyConnectTimeout  = "connect_timeout"
	KeyResponseTimeout = "response_timeout"
	KeyIdleTimeout     = "idle_timeout"
	KeyQueueDepth      = "queue_depth"
	KeyReconnectBase   = "reconnect.base"
	KeyReconnectMax    = "reconnect.max"
	KeyReconnectTries  = "reconnect.max_retries"
	KeyLogLevel        = "log_level"
	KeyListen          = "listen"
)

// DefaultListen is the bridge listen address.
const DefaultListen = "127.0.0.1:8080"

// Config is the resolved configuration.
type Config struct {
	Host            string
	Port            int
	MonitorPort     int
	User            string
	Password        string
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
	IdleTimeout     time.Duration
	QueueDepth      int
	Reconnect       Reconnect
	LogLevel        string
	Listen          string

	// File is the config file that was read, empty when none was found.
	File string
}

// Reconnect bounds the reconnect backoff.
type Reconnect struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint64
}

// DefaultDir returns $XDG_CONFIG_HOME/gma2, or the platform equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, configDir), nil
}

// LoadDotEnv copies KEY=value pairs from a dotenv file into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, ma2protocol.DefaultHost)
	v.SetDefault(KeyPort, ma2protocol.DefaultPort)
	v.SetDefault(KeyMonitorPort, ma2protocol.MonitorPort)
	v.SetDefault(KeyUser, ma2protocol.DefaultUser)
	v.SetDefault(KeyPassword, ma2protocol.DefaultPassword)
	v.SetDefault(KeyConnectTimeout, ma2protocol.DefaultConnectTimeout)
	v.SetDefault(KeyResponseTimeout, ma2protocol.DefaultResponseTimeout)
	v.SetDefault(KeyIdleTimeout, ma2protocol.DefaultIdleTimeout)
	v.SetDefault(KeyQueueDepth, ma2protocol.DefaultQueueDepth)
	v.SetDefault(KeyReconnectBase, ma2protocol.DefaultBackoffBase)
	v.SetDefault(KeyReconnectMax, ma2protocol.DefaultBackoffMax)
	v.SetDefault(KeyReconnectTries, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListen, DefaultListen)
}

// Load resolves the configuration. Flags must already be bound to v. When
// path is empty the default directory is searched and a missing file is
// not an error; an explicit path must exist.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyLogLevel, "GMA_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return Config{}, fmt.Errorf("bind log level env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return Config{}, err
		}
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := Config{
		Host:            v.GetString(KeyHost),
		Port:            v.GetInt(KeyPort),
		MonitorPort:     v.GetInt(KeyMonitorPort),
		User:            v.GetString(KeyUser),
		Password:        v.GetString(KeyPassword),
		ConnectTimeout:  v.GetDuration(KeyConnectTimeout),
		ResponseTimeout: v.GetDuration(KeyResponseTimeout),
		IdleTimeout:     v.GetDuration(KeyIdleTimeout),
		QueueDepth:      v.GetInt(KeyQueueDepth),
		Reconnect: Reconnect{
			Base:       v.GetDuration(KeyReconnectBase),
			Max:        v.GetDuration(KeyReconnectMax),
			MaxRetries: v.GetUint64(KeyReconnectTries),
		},
		LogLevel: strings.ToLower(v.GetString(KeyLogLevel)),
		Listen:   v.GetString(KeyListen),
		File:     v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MonitorPort < 1 || c.MonitorPort > 65535 {
		errs = append(errs, fmt.Errorf("monitor_port %d out of range", c.MonitorPort))
	}
	if c.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("queue_depth %d is negative", c.QueueDepth))
	}
	if c.ConnectTimeout < 0 || c.ResponseTimeout < 0 || c.IdleTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return level, nil
}

// Level returns the slog level for LogLevel, Info if it does not parse.
func (c Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Endpoint returns the command port address.
func (c Config) Endpoint() ma2protocol.Endpoint {
	return ma2protocol.Endpoint{Host: c.Host, Port: c.Port}
}

// MonitorEndpoint returns the log port address.
func (c Config) MonitorEndpoint() ma2protocol.Endpoint {
	return ma2protocol.Endpoint{Host: c.Host, Port: c.MonitorPort}
}

// Credentials returns the login.
func (c Config) Credentials() ma2protocol.Credentials {
	return ma2protocol.Credentials{User: c.User, Password: c.Password}
}

// Session returns session parameters using logger.
func (c Config) Session(logger *slog.Logger) ma2protocol.Config {
	return ma2protocol.Config{
		ConnectTimeout:  c.ConnectTimeout,
		ResponseTimeout: c.ResponseTimeout,
		IdleTimeout:     c.IdleTimeout,
		QueueDepth:      c.QueueDepth,
		Backoff: ma2protocol.BackoffConfig{
			Base:       c.Reconnect.Base,
			Max:        c.Reconnect.Max,
			MaxRetries: c.Reconnect.MaxRetries,
		},
		TranscriptSize: ma2protocol.DefaultTranscriptSize,
		Logger:         logger,
	}
}

// fileSchema is the on-disk layout. Durations are written as strings such
// as "5s" so the file can be read back.
type fileSchema struct {
	Host            string          `toml:"host"`
	Port            int             `toml:"port"`
	MonitorPort     int             `toml:"monitor_port"`
	User            string          `toml:"user"`
	Password        string          `toml:"password"`
	ConnectTimeout  string          `toml:"connect_timeout"`
	ResponseTimeout string          `toml:"response_timeout"`
	IdleTimeout     string          `toml:"idle_timeout"`
	QueueDepth      int             `toml:"queue_depth"`
	LogLevel        string          `toml:"log_level"`
	Listen          string          `toml:"listen"`
	Reconnect       reconnectSchema `toml:"reconnect"`
}

type reconnectSchema struct {
	Base       string `toml:"base"`
	Max        string `toml:"max"`
	MaxRetries uint64 `toml:"max_retries"`
}

// TOML renders c as a config file with the password masked.
func (c Config) TOML() ([]byte, error) {
	file := fileSchema{
		Host:            c.Host,
		Port:            c.Port,
		MonitorPort:     c.MonitorPort,
		User:            c.User,
		Password:        MaskedPassword,
		ConnectTimeout:  c.ConnectTimeout.String(),
		ResponseTimeout: c.ResponseTimeout.String(),
		IdleTimeout:     c.IdleTimeout.String(),
		QueueDepth:      c.QueueDepth,
		LogLevel:        c.LogLevel,
		Listen:          c.Listen,
		Reconnect: reconnectSchema{
			Base:       c.Reconnect.Base.String(),
			Max:        c.Reconnect.Max.String(),
			MaxRetries: c.Reconnect.MaxRetries,
		},
	}
	if c.Password == "" {
		file.Password = ""
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
