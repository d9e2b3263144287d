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

// Package testenv provides the ClickHouse server used by integration tests.
//
// By default a clickhouse/clickhouse-server container is started with
// testcontainers on first use. Set CLICKHOUSE_USE_DOCKER=false to point the
// tests at an existing server described by CLICKHOUSE_HOST, CLICKHOUSE_PORT,
// CLICKHOUSE_USERNAME and CLICKHOUSE_PASSWORD.
package testenv

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yowko/ClickHouseCRUD/internal/config"
)

const (
	defaultClickHouseVersion = "latest"
	defaultPassword          = "ClickHouse"
	Database                 = "chcrud_test"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

type Environment struct {
	Host     string
	Port     int
	HTTPPort int
	Username string
	Password string

	container testcontainers.Container
}

var (
	once   sync.Once
	env    *Environment
	envErr error
)

// Get returns the shared environment, starting it on first use. The test is
// skipped when no server can be provided.
func Get(t testing.TB) *Environment {
	t.Helper()
	once.Do(func() {
		env, envErr = start(context.Background())
		if envErr == nil {
			envErr = env.createDatabase(context.Background())
		}
	})
	if envErr != nil {
		t.Skipf("clickhouse unavailable: %s", envErr)
	}
	return env
}

// Shutdown terminates the container started by Get, if any. Call it from TestMain.
func Shutdown() {
	if env != nil && env.container != nil {
		env.container.Terminate(context.Background()) //nolint
	}
}

func start(ctx context.Context) (*Environment, error) {
	useDocker, err := strconv.ParseBool(GetEnv("CLICKHOUSE_USE_DOCKER", "true"))
	if err != nil {
		return nil, err
	}
	if !useDocker {
		port, err := strconv.Atoi(GetEnv(config.EnvPort, "9000"))
		if err != nil {
			return nil, err
		}
		httpPort, err := strconv.Atoi(GetEnv("CLICKHOUSE_HTTP_PORT", "8123"))
		if err != nil {
			return nil, err
		}
		return &Environment{
			Host:     GetEnv(config.EnvHost, "localhost"),
			Port:     port,
			HTTPPort: httpPort,
			Username: GetEnv(config.EnvUsername, "default"),
			Password: GetEnv(config.EnvPassword, ""),
		}, nil
	}

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return nil, fmt.Errorf("docker is not available: %w", err)
	}
	if err := provider.Health(ctx); err != nil {
		return nil, fmt.Errorf("docker is not running: %w", err)
	}
	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("clickhouse/clickhouse-server:%s", GetEnv("CLICKHOUSE_VERSION", defaultClickHouseVersion)),
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_PASSWORD":                  defaultPassword,
			"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
		},
		WaitingFor: wait.ForHTTP("/ping").WithPort("8123/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint
		return nil, err
	}
	native, err := container.MappedPort(ctx, "9000")
	if err != nil {
		container.Terminate(ctx) //nolint
		return nil, err
	}
	http, err := container.MappedPort(ctx, "8123")
	if err != nil {
		container.Terminate(ctx) //nolint
		return nil, err
	}
	return &Environment{
		Host:      host,
		Port:      native.Int(),
		HTTPPort:  http.Int(),
		Username:  "default",
		Password:  defaultPassword,
		container: container,
	}, nil
}

// Connection describes the environment over the given protocol.
func (e *Environment) Connection(protocol config.Protocol) config.Connection {
	port := e.Port
	if protocol != config.ProtocolNative {
		port = e.HTTPPort
	}
	return config.Connection{
		Host:        e.Host,
		Port:        port,
		Database:    Database,
		Username:    e.Username,
		Password:    e.Password,
		Compression: true,
		Timeout:     30 * time.Second,
		Protocol:    protocol,
		NativePort:  e.Port,
	}
}

// Config returns a loader configuration for table in the test database.
func (e *Environment) Config(protocol config.Protocol, table string) *config.Config {
	return &config.Config{
		Connection:    e.Connection(protocol),
		Table:         Database + "." + table,
		MutationsSync: 1,
		LogLevel:      "debug",
	}
}

// Conn opens an administrative connection closed at the end of the test.
func (e *Environment) Conn(t testing.TB) driver.Conn {
	t.Helper()
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", e.Host, e.Port)},
		Auth: clickhouse.Auth{
			Username: e.Username,
			Password: e.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("open clickhouse connection: %s", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func (e *Environment) createDatabase(ctx context.Context) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", e.Host, e.Port)},
		Auth: clickhouse.Auth{
			Username: e.Username,
			Password: e.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+Database)
}

// OrdersDDL is the destination table layout the loader expects.
const OrdersDDL = `
	CREATE TABLE %s (
		  id         UInt64
		, order_date DateTime
		, product_id UInt32
		, order_type UInt8
		, amount     Decimal(12, 6)
	) ENGINE = MergeTree ORDER BY id
`

// CreateOrdersTable creates a fresh orders table named after the test and
// returns its unqualified name. The table is dropped when the test ends.
func (e *Environment) CreateOrdersTable(t testing.TB) string {
	t.Helper()
	table := "orders_" + strings.ToLower(strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(t.Name()))
	qualified := Database + "." + table
	conn := e.Conn(t)
	ctx := context.Background()
	if err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+qualified); err != nil {
		t.Fatalf("drop %s: %s", qualified, err)
	}
	if err := conn.Exec(ctx, fmt.Sprintf(OrdersDDL, qualified)); err != nil {
		t.Fatalf("create %s: %s", qualified, err)
	}
	t.Cleanup(func() {
		conn.Exec(context.Background(), "DROP TABLE IF EXISTS "+qualified) //nolint
	})
	return table
}
