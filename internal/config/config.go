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

// Package config resolves the connection and destination table used by the loader.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// CLICKHOUSE_* environment variables. Command line flags are applied last by
// the cli package.
package config

import (
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

const (
	FileName = "chcrud.yaml"

	DefaultConnectionString = "Compression=True;Timeout=10000;Host=localhost;Port=8123;Database=test;Username=yowko;Password=pass.123"
	DefaultTable            = "test.orders"
	DefaultMutationsSync    = 1
)

const (
	EnvConnectionString = "CLICKHOUSE_CONNECTION_STRING"
	EnvHost             = "CLICKHOUSE_HOST"
	EnvPort             = "CLICKHOUSE_PORT"
	EnvDatabase         = "CLICKHOUSE_DATABASE"
	EnvUsername         = "CLICKHOUSE_USERNAME"
	EnvPassword         = "CLICKHOUSE_PASSWORD"
	EnvProtocol         = "CLICKHOUSE_PROTOCOL"
	EnvTable            = "CHCRUD_TABLE"
)

type Config struct {
	// ConnectionString, when set in the file, replaces the connection block.
	ConnectionString string     `yaml:"connection_string,omitempty"`
	Connection       Connection `yaml:"connection"`
	Table            string     `yaml:"table"`
	// MutationsSync is sent with ALTER UPDATE/DELETE: 0 returns immediately,
	// 1 waits for the local replica, 2 waits for all replicas.
	MutationsSync int    `yaml:"mutations_sync"`
	LogLevel      string `yaml:"log_level"`
}

func Default() *Config {
	conn, err := ParseConnectionString(DefaultConnectionString)
	if err != nil {
		panic(err)
	}
	return &Config{
		Connection:    conn,
		Table:         DefaultTable,
		MutationsSync: DefaultMutationsSync,
		LogLevel:      "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	var probe struct {
		Connection struct {
			Port     int      `yaml:"port"`
			Protocol Protocol `yaml:"protocol"`
		} `yaml:"connection"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Connection.Port != 0 && probe.Connection.Protocol == "" {
		// a port without a protocol picks the protocol again
		c.Connection.Protocol = ""
	}
	if c.ConnectionString != "" {
		conn, err := ParseConnectionString(c.ConnectionString)
		if err != nil {
			return errors.Wrap(err, path)
		}
		c.Connection = conn
	}
	c.Connection.resolveProtocol()
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvConnectionString); ok && v != "" {
		conn, err := ParseConnectionString(v)
		if err != nil {
			return errors.Wrap(err, EnvConnectionString)
		}
		c.Connection = conn
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Connection.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s=%q", EnvPort, v)
		}
		c.Connection.Port = port
		c.Connection.Protocol = ""
	}
	if v, ok := lookup(EnvProtocol); ok && v != "" {
		p, err := ParseProtocol(v)
		if err != nil {
			return errors.Wrap(err, EnvProtocol)
		}
		c.Connection.Protocol = p
	}
	c.Connection.resolveProtocol()
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.Connection.Database = v
	}
	if v, ok := lookup(EnvUsername); ok && v != "" {
		c.Connection.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Connection.Password = v
	}
	if v, ok := lookup(EnvTable); ok && v != "" {
		c.Table = v
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return err
	}
	if err := ValidateTable(c.Table); err != nil {
		return err
	}
	if c.MutationsSync < 0 || c.MutationsSync > 2 {
		return errors.Errorf("mutations_sync must be 0, 1 or 2, got %d", c.MutationsSync)
	}
	return nil
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTable accepts "table" or "database.table" made of plain identifiers.
// The name ends up inside statement text, so nothing else is allowed.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return errors.Errorf("invalid table name %q", name)
	}
	return nil
}
