// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/namdaets/ircclient/irc/logger"
)

// here's how this works: exported (capitalized) members of the config
// structs are defined in the YAML file and deserialized directly from
// there. They may be postprocessed and overwritten by LoadConfig.

// ServerConfig says which server to connect to and how.
type ServerConfig struct {
	// Address is the host:port of the server; the port may be omitted
	// (6667 plain, 6697 TLS).
	Address string
	TLS     bool
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure-skip-verify"`
	// WebsocketURL connects over IRC-over-WebSocket instead of a stream
	// socket.
	WebsocketURL string `yaml:"websocket-url"`
	// Password is the server password (PASS), if any.
	Password       string
	ConnectTimeout time.Duration `yaml:"connect-timeout"`
}

// SASLConfig enables the optional SASL PLAIN authentication step during
// registration.
type SASLConfig struct {
	Username string
	Password string
	// Require aborts the connection if SASL fails rather than continuing
	// unauthenticated.
	Require bool
}

// Config defines everything the engine can be told about a connection.
type Config struct {
	Server ServerConfig

	Nick     string
	AltNicks []string `yaml:"alt-nicks"`
	Username string
	Realname string
	// NickservPassword is sent as an IDENTIFY message after registration.
	NickservPassword string     `yaml:"nickserv-password"`
	SASL             SASLConfig `yaml:"sasl"`

	// Channels are joined automatically after registration (and after
	// every reconnect).
	Channels []string

	DisableFloodControl bool        `yaml:"disable-flood-control"`
	Flood               FloodConfig `yaml:"flood"`

	PingInterval time.Duration `yaml:"ping-interval"`
	PingTimeout  time.Duration `yaml:"ping-timeout"`

	AutoReconnect bool          `yaml:"auto-reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect-wait"`

	Logging []logger.LoggingConfig

	Filename string `yaml:"-"`
}

// flood control defaults: 4 lines back to back, then one line per 2
// seconds (10 per 20s window); 8 quiet seconds restore the burst
const (
	defaultFloodBurst            = 4
	defaultFloodLinesPerInterval = 10
	defaultFloodInterval         = 20 * time.Second
	defaultFloodCooldown         = 8 * time.Second
)

const (
	defaultPingInterval  = 90 * time.Second
	defaultPingTimeout   = 90 * time.Second
	defaultReconnectWait = 30 * time.Second
)

// LoadConfig loads and validates the given YAML configuration file.
func LoadConfig(filename string) (config *Config, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	config.Filename = filename

	if err = config.Prepare(); err != nil {
		return nil, err
	}
	return config, nil
}

// Prepare validates the config and fills in derived values and defaults.
// LoadConfig calls it; configs constructed in code must call it before
// use.
func (config *Config) Prepare() error {
	if config.Server.Address == "" && config.Server.WebsocketURL == "" {
		return ErrAddressMissing
	}
	if config.Server.Address != "" {
		if _, _, err := net.SplitHostPort(config.Server.Address); err != nil {
			port := "6667"
			if config.Server.TLS {
				port = "6697"
			}
			config.Server.Address = net.JoinHostPort(config.Server.Address, port)
		}
	}
	if config.Server.ConnectTimeout == 0 {
		config.Server.ConnectTimeout = DefaultConnectTimeout
	}

	if config.Nick == "" {
		return ErrNicknameMissing
	}
	if err := ValidateNickname(config.Nick); err != nil {
		return fmt.Errorf("invalid nickname [%s]: %w", config.Nick, err)
	}
	for _, nick := range config.AltNicks {
		if err := ValidateNickname(nick); err != nil {
			return fmt.Errorf("invalid alternate nickname [%s]: %w", nick, err)
		}
	}
	if config.Username == "" {
		config.Username = config.Nick
	}
	if config.Realname == "" {
		config.Realname = config.Nick
	}

	config.Flood.Enabled = !config.DisableFloodControl
	if config.Flood.Burst == 0 {
		config.Flood.Burst = defaultFloodBurst
	}
	if config.Flood.LinesPerInterval == 0 {
		config.Flood.LinesPerInterval = defaultFloodLinesPerInterval
	}
	if config.Flood.Interval == 0 {
		config.Flood.Interval = defaultFloodInterval
	}
	if config.Flood.Cooldown == 0 {
		config.Flood.Cooldown = defaultFloodCooldown
	}
	if config.Flood.Enabled && (config.Flood.Interval < 0 || config.Flood.LinesPerInterval < 1) {
		return ErrFloodLimitsInsane
	}

	if config.PingInterval == 0 {
		config.PingInterval = defaultPingInterval
	}
	if config.PingTimeout == 0 {
		config.PingTimeout = defaultPingTimeout
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = defaultReconnectWait
	}

	// process loggers
	var newLogConfigs []logger.LoggingConfig
	for _, logConfig := range config.Logging {
		// methods
		methods := make(map[string]bool)
		for _, method := range strings.Split(logConfig.Method, " ") {
			if len(method) > 0 {
				methods[strings.ToLower(method)] = true
			}
		}
		if methods["file"] && logConfig.Filename == "" {
			return ErrLoggerFilenameMissing
		}
		logConfig.MethodFile = methods["file"]
		logConfig.MethodStdout = methods["stdout"]
		logConfig.MethodStderr = methods["stderr"]

		// levels
		level, exists := logger.LogLevelNames[strings.ToLower(logConfig.LevelString)]
		if !exists {
			return fmt.Errorf("Could not translate log level [%s]", logConfig.LevelString)
		}
		logConfig.Level = level

		// types
		for _, typeStr := range strings.Split(logConfig.TypeString, " ") {
			if len(typeStr) == 0 {
				continue
			}
			if typeStr == "-" {
				return ErrLoggerExcludeEmpty
			}
			if typeStr[0] == '-' {
				typeStr = typeStr[1:]
				logConfig.ExcludedTypes = append(logConfig.ExcludedTypes, typeStr)
			} else {
				logConfig.Types = append(logConfig.Types, typeStr)
			}
		}
		if len(logConfig.Types) < 1 {
			return ErrLoggerHasNoTypes
		}

		newLogConfigs = append(newLogConfigs, logConfig)
	}
	config.Logging = newLogConfigs

	return nil
}
