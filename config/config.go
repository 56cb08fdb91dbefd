// SPDX-FileCopyrightText: Copyright (C) 2018-2023  Yawning Angel, David Stainton.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config implements the configuration for the tieba client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/geary0124/Tieba-Manager/internal/proxy"
)

const (
	defaultLogLevel     = "NOTICE"
	defaultAppBaseURL   = "http://c.tieba.baidu.com"
	defaultWebBaseURL   = "http://tieba.baidu.com"
	defaultWebsocketURL = "ws://im.tieba.baidu.com:8000"
	defaultDialTimeout  = 8
	defaultReadTimeout  = 5
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stdout will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Account holds the session credentials.
type Account struct {
	// BDUSS is the session cookie of the account.
	BDUSS string

	// STOKEN is the web session token, only needed by web endpoints.
	STOKEN string
}

func (aCfg *Account) validate() error {
	if aCfg.BDUSS == "" {
		return errors.New("config: Account: BDUSS is missing")
	}
	return nil
}

// UpstreamProxy is the optional proxy all connections go through.
type UpstreamProxy struct {
	// Type is the proxy type (Eg: "none", "socks5").
	Type string

	// Network is the proxy address' network (`unix`, `tcp`).
	Network string

	// Address is the proxy's address.
	Address string

	// User is the optional proxy username.
	User string

	// Password is the optional proxy password.
	Password string
}

func (uCfg *UpstreamProxy) toProxyConfig() (*proxy.Config, error) {
	cfg := &proxy.Config{}
	if uCfg != nil {
		cfg.Type = uCfg.Type
		cfg.Network = uCfg.Network
		cfg.Address = uCfg.Address
		cfg.User = uCfg.User
		cfg.Password = uCfg.Password
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Network holds the endpoints and timeouts.
type Network struct {
	AppBaseURL   string
	WebBaseURL   string
	WebsocketURL string

	// DialTimeout is the number of seconds a connection attempt may take.
	DialTimeout int

	// ReadTimeout is the number of seconds to wait for a websocket reply.
	ReadTimeout int
}

func (nCfg *Network) fixup() {
	if nCfg.AppBaseURL == "" {
		nCfg.AppBaseURL = defaultAppBaseURL
	}
	if nCfg.WebBaseURL == "" {
		nCfg.WebBaseURL = defaultWebBaseURL
	}
	if nCfg.WebsocketURL == "" {
		nCfg.WebsocketURL = defaultWebsocketURL
	}
	if nCfg.DialTimeout == 0 {
		nCfg.DialTimeout = defaultDialTimeout
	}
	if nCfg.ReadTimeout == 0 {
		nCfg.ReadTimeout = defaultReadTimeout
	}
}

func (nCfg *Network) validate() error {
	for _, s := range []string{nCfg.AppBaseURL, nCfg.WebBaseURL, nCfg.WebsocketURL} {
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("config: Network: %v", err)
		}
		if u.Host == "" {
			return fmt.Errorf("config: Network: URL '%v' has no host", s)
		}
	}
	if nCfg.DialTimeout < 0 || nCfg.ReadTimeout < 0 {
		return errors.New("config: Network: timeouts must be positive")
	}
	return nil
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (nCfg *Network) DialTimeoutDuration() time.Duration {
	return time.Duration(nCfg.DialTimeout) * time.Second
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (nCfg *Network) ReadTimeoutDuration() time.Duration {
	return time.Duration(nCfg.ReadTimeout) * time.Second
}

// Cache is the forum id cache configuration.
type Cache struct {
	// Path is the bolt database file. If empty, ids are cached in memory.
	Path string
}

// Metrics is the prometheus exporter configuration.
type Metrics struct {
	// Address is the listen address of the /metrics endpoint. If empty,
	// metrics are not served.
	Address string
}

// Config is the top level configuration.
type Config struct {
	Logging       *Logging
	Account       *Account
	Network       *Network
	UpstreamProxy *UpstreamProxy
	Cache         *Cache
	Metrics       *Metrics

	upstreamProxy *proxy.Config
}

// UpstreamProxyConfig returns the validated proxy configuration.
func (c *Config) UpstreamProxyConfig() *proxy.Config {
	return c.upstreamProxy
}

// FixupAndValidate applies defaults to missing sections and validates the
// configuration.
func (c *Config) FixupAndValidate() error {
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	if c.Account == nil {
		return errors.New("config: No Account block was present")
	}
	if c.Network == nil {
		c.Network = &Network{}
	}
	c.Network.fixup()
	if c.Cache == nil {
		c.Cache = &Cache{}
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}

	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Account.validate(); err != nil {
		return err
	}
	if err := c.Network.validate(); err != nil {
		return err
	}
	pCfg, err := c.UpstreamProxy.toProxyConfig()
	if err != nil {
		return err
	}
	c.upstreamProxy = pCfg
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
