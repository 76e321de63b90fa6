// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/namdaets/ircclient/irc/logger"
)

func loadConfigForTesting(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "ircclient.yaml")
	if err := os.WriteFile(filename, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	return LoadConfig(filename)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
    tls: true
nick: tester
`)
	if err != nil {
		t.Fatal(err)
	}

	if config.Server.Address != "irc.example.com:6697" {
		t.Errorf("TLS default port not applied: %q", config.Server.Address)
	}
	if config.Server.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("connect timeout default not applied: %v", config.Server.ConnectTimeout)
	}
	if config.Username != "tester" || config.Realname != "tester" {
		t.Errorf("username/realname defaults not applied: %q %q", config.Username, config.Realname)
	}
	if !config.Flood.Enabled || config.Flood.Burst != defaultFloodBurst ||
		config.Flood.Interval != defaultFloodInterval {
		t.Errorf("flood defaults not applied: %+v", config.Flood)
	}
	if config.PingInterval != defaultPingInterval || config.PingTimeout != defaultPingTimeout {
		t.Errorf("liveness defaults not applied: %v %v", config.PingInterval, config.PingTimeout)
	}
	if config.ReconnectWait != defaultReconnectWait {
		t.Errorf("reconnect wait default not applied: %v", config.ReconnectWait)
	}
}

func TestLoadConfigPlainPort(t *testing.T) {
	config, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
nick: tester
`)
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Address != "irc.example.com:6667" {
		t.Errorf("plaintext default port not applied: %q", config.Server.Address)
	}

	config, err = loadConfigForTesting(t, `
server:
    address: "irc.example.com:7000"
nick: tester
`)
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Address != "irc.example.com:7000" {
		t.Errorf("explicit port was rewritten: %q", config.Server.Address)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	if _, err := loadConfigForTesting(t, "nick: tester\n"); err != ErrAddressMissing {
		t.Errorf("missing address: got %v", err)
	}
	if _, err := loadConfigForTesting(t, "server:\n    address: irc.example.com\n"); err != ErrNicknameMissing {
		t.Errorf("missing nick: got %v", err)
	}
	if _, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
nick: "bad nick"
`); err == nil {
		t.Errorf("invalid nick accepted")
	}
}

func TestLoadConfigFloodControl(t *testing.T) {
	config, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
nick: tester
disable-flood-control: true
flood:
    burst: 10
    lines-per-interval: 5
    interval: 10s
`)
	if err != nil {
		t.Fatal(err)
	}
	if config.Flood.Enabled {
		t.Errorf("flood control not disabled")
	}
	if config.Flood.Burst != 10 || config.Flood.LinesPerInterval != 5 ||
		config.Flood.Interval != 10*time.Second {
		t.Errorf("flood tuning not read: %+v", config.Flood)
	}
	if config.Flood.Cooldown != defaultFloodCooldown {
		t.Errorf("cooldown default not applied: %v", config.Flood.Cooldown)
	}
}

func TestLoadConfigLogging(t *testing.T) {
	config, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
nick: tester
logging:
    -
        method: stderr
        type: "* -rx -tx"
        level: debug
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(config.Logging) != 1 {
		t.Fatalf("got %d logging configs", len(config.Logging))
	}
	lc := config.Logging[0]
	if !lc.MethodStderr || lc.MethodStdout || lc.MethodFile {
		t.Errorf("methods not parsed: %+v", lc)
	}
	if lc.Level != logger.LogDebug {
		t.Errorf("level not parsed: %v", lc.Level)
	}
	if len(lc.Types) != 1 || lc.Types[0] != "*" {
		t.Errorf("types not parsed: %v", lc.Types)
	}
	if len(lc.ExcludedTypes) != 2 {
		t.Errorf("excluded types not parsed: %v", lc.ExcludedTypes)
	}

	// a file logger without a filename is rejected
	if _, err := loadConfigForTesting(t, `
server:
    address: irc.example.com
nick: tester
logging:
    -
        method: file
        type: "*"
        level: info
`); err != ErrLoggerFilenameMissing {
		t.Errorf("file logger without filename: got %v", err)
	}
}
