// proxy.go - Upstream proxy support.
// Copyright (C) 2018  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package proxy implements the support for an upstream SOCKS5 proxy.
package proxy

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	typeNone   = "none"
	typeSocks5 = "socks5"

	netUnix = "unix"
	netTCP  = "tcp"

	maxSocks5AuthLen = 255
)

// Config is the proxy configuration.
type Config struct {
	// Type is the proxy type, "none" or "socks5".
	Type string

	// Network is the proxy address' network (`unix`, `tcp`).
	Network string

	// Address is the proxy's address.
	Address string

	// User is the optional proxy username.
	User string

	// Password is the optional proxy password.
	Password string

	auth *proxy.Auth
}

// DialContextFn is a function that matches the Dialer.DialContext prototype.
type DialContextFn func(context.Context, string, string) (net.Conn, error)

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration.
func (cfg *Config) FixupAndValidate() error {
	cfg.Type = strings.ToLower(cfg.Type)
	switch cfg.Type {
	case "":
		cfg.Type = typeNone
	case typeNone:
	case typeSocks5:
		uLen, pLen := len(cfg.User), len(cfg.Password)
		if uLen > maxSocks5AuthLen {
			return fmt.Errorf("proxy/config: User too long")
		}
		if pLen > maxSocks5AuthLen {
			return fmt.Errorf("proxy/config: Password too long")
		}
		if uLen != 0 && pLen == 0 || uLen == 0 && pLen != 0 {
			return fmt.Errorf("proxy/config: Both User and Password must be specified")
		}
		if uLen != 0 {
			cfg.auth = &proxy.Auth{
				User:     cfg.User,
				Password: cfg.Password,
			}
		}

		cfg.Network = strings.ToLower(cfg.Network)
		switch cfg.Network {
		case "":
			cfg.Network = netTCP
			fallthrough
		case netTCP:
			if err := ensureHostPort(cfg.Address); err != nil {
				return fmt.Errorf("proxy/config: Address '%v' is invalid: %v", cfg.Address, err)
			}
		case netUnix:
			fi, err := os.Lstat(cfg.Address)
			if err != nil {
				return fmt.Errorf("proxy/config: Address '%v' failed to stat(): %v", cfg.Address, err)
			}
			if fi.Mode()&os.ModeSocket == 0 {
				return fmt.Errorf("proxy/config: Address '%v' does not appear to be a socket", cfg.Address)
			}
		default:
			return fmt.Errorf("proxy/config: Network '%v' is invalid", cfg.Network)
		}
	default:
		return fmt.Errorf("proxy/config: Type '%v' is invalid", cfg.Type)
	}
	return nil
}

// ToDialContext returns a function matching Dialer.DialContext() that will
// utilize the configured proxy, or nil if no proxy is configured.
func (cfg *Config) ToDialContext(timeout time.Duration) (DialContextFn, error) {
	switch cfg.Type {
	case typeNone, "":
		return nil, nil
	case typeSocks5:
		d, err := proxy.SOCKS5(cfg.Network, cfg.Address, cfg.auth, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, err
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy: SOCKS5 dialer does not support contexts")
		}
		return cd.DialContext, nil
	default:
		return nil, fmt.Errorf("proxy: invalid type: %v", cfg.Type)
	}
}

func ensureHostPort(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("missing host")
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return fmt.Errorf("invalid port '%v'", port)
	}
	return nil
}
