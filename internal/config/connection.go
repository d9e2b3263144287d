// Licensed to ClickHouse, Inc. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. ClickHouse, Inc. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
)

type Protocol string

const (
	ProtocolNative Protocol = "native"
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
)

const (
	DefaultNativePort       = 9000
	DefaultNativeSecurePort = 9440
	DefaultHTTPPort         = 8123
	DefaultHTTPSPort        = 8443
	DefaultTimeout          = 2 * time.Minute
)

// Connection describes how to reach the ClickHouse server.
type Connection struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Database    string        `yaml:"database"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Compression bool          `yaml:"compression"`
	Timeout     time.Duration `yaml:"timeout"`
	Protocol    Protocol      `yaml:"protocol"`
	// NativePort is used by the columnar insert path, which always speaks the
	// native protocol. Zero means Port for native connections, 9000 otherwise.
	NativePort int `yaml:"native_port,omitempty"`
}

// ParseConnectionString parses a "Key=Value;Key=Value" connection string such as
//
//	Compression=True;Timeout=10000;Host=localhost;Port=8123;Database=test;Username=yowko;Password=pass.123
//
// Keys are case-insensitive. Timeout is in milliseconds. Without an explicit
// Protocol, ports 8123 and 8443 select http and https and any other port
// selects the native protocol.
func ParseConnectionString(s string) (Connection, error) {
	conn := Connection{
		Host:        "localhost",
		Database:    "default",
		Username:    "default",
		Compression: true,
		Timeout:     DefaultTimeout,
	}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return Connection{}, errors.Errorf("connection string: %q is not a key=value pair", pair)
		}
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
		switch key {
		case "host":
			conn.Host = value
		case "port":
			port, err := parsePort(value)
			if err != nil {
				return Connection{}, err
			}
			conn.Port = port
		case "nativeport":
			port, err := parsePort(value)
			if err != nil {
				return Connection{}, err
			}
			conn.NativePort = port
		case "database":
			conn.Database = value
		case "username", "user":
			conn.Username = value
		case "password":
			conn.Password = value
		case "compression":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return Connection{}, errors.Wrapf(err, "connection string: compression %q", value)
			}
			conn.Compression = on
		case "timeout":
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil || ms <= 0 {
				return Connection{}, errors.Errorf("connection string: timeout %q must be a positive number of milliseconds", value)
			}
			conn.Timeout = time.Duration(ms) * time.Millisecond
		case "protocol":
			p, err := ParseProtocol(value)
			if err != nil {
				return Connection{}, err
			}
			conn.Protocol = p
		default:
			return Connection{}, errors.Errorf("connection string: unknown key %q", key)
		}
	}
	conn.resolveProtocol()
	return conn, nil
}

func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolNative, ProtocolHTTP, ProtocolHTTPS:
		return p, nil
	case "tcp":
		return ProtocolNative, nil
	default:
		return "", errors.Errorf("unsupported protocol %q", s)
	}
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, errors.Errorf("connection string: invalid port %q", s)
	}
	return port, nil
}

func (c *Connection) resolveProtocol() {
	if c.Protocol == "" {
		switch c.Port {
		case 0, DefaultHTTPPort:
			c.Protocol = ProtocolHTTP
		case DefaultHTTPSPort:
			c.Protocol = ProtocolHTTPS
		default:
			c.Protocol = ProtocolNative
		}
	}
	if c.Port == 0 {
		switch c.Protocol {
		case ProtocolHTTP:
			c.Port = DefaultHTTPPort
		case ProtocolHTTPS:
			c.Port = DefaultHTTPSPort
		default:
			c.Port = DefaultNativePort
		}
	}
}

func (c Connection) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NativeAddr is the address of the server's native protocol endpoint. An
// https connection maps to the secure native port.
func (c Connection) NativeAddr() string {
	port := c.NativePort
	if port == 0 {
		switch c.Protocol {
		case ProtocolNative:
			port = c.Port
		case ProtocolHTTPS:
			port = DefaultNativeSecurePort
		default:
			port = DefaultNativePort
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// NativeTLS returns the TLS config for the native endpoint, nil for plaintext.
func (c Connection) NativeTLS() *tls.Config {
	if c.Protocol == ProtocolHTTPS {
		return &tls.Config{ServerName: c.Host}
	}
	return nil
}

// Options converts the connection into driver options.
func (c Connection) Options() *clickhouse.Options {
	opts := &clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{c.Addr()},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		DialTimeout: c.Timeout,
		ReadTimeout: c.Timeout,
	}
	switch c.Protocol {
	case ProtocolHTTPS:
		opts.TLS = &tls.Config{}
		fallthrough
	case ProtocolHTTP:
		opts.Protocol = clickhouse.HTTP
	}
	if c.Compression {
		// native connections compress blocks, http connections compress bodies
		method := clickhouse.CompressionLZ4
		if opts.Protocol == clickhouse.HTTP {
			method = clickhouse.CompressionGZIP
		}
		opts.Compression = &clickhouse.Compression{Method: method}
	}
	return opts
}

func (c Connection) Validate() error {
	if c.Host == "" {
		return errors.New("connection: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("connection: invalid port %d", c.Port)
	}
	if _, err := ParseProtocol(string(c.Protocol)); err != nil {
		return errors.Wrap(err, "connection")
	}
	if c.Timeout <= 0 {
		return errors.Errorf("connection: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// String renders the connection in connection string form with the password masked.
func (c Connection) String() string {
	password := ""
	if c.Password != "" {
		password = "***"
	}
	return fmt.Sprintf("Compression=%t;Timeout=%d;Host=%s;Port=%d;Database=%s;Username=%s;Password=%s;Protocol=%s",
		c.Compression, c.Timeout.Milliseconds(), c.Host, c.Port, c.Database, c.Username, password, c.Protocol)
}
