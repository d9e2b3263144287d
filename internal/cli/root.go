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

// Package cli implements the chcrud command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yowko/ClickHouseCRUD/internal/config"
	"github.com/yowko/ClickHouseCRUD/internal/loader"
	"github.com/yowko/ClickHouseCRUD/internal/logging"
	"github.com/yowko/ClickHouseCRUD/internal/order"
)

// Operations is what the commands need from a loader.
type Operations interface {
	InsertSingle(ctx context.Context, o order.Order) error
	InsertBulk(ctx context.Context, orders []order.Order) error
	InsertColumnar(ctx context.Context, orders []order.Order) error
	Query(ctx context.Context, fn func(order.Order) error) error
	Update(ctx context.Context, id uint64, amount decimal.Decimal) error
	Delete(ctx context.Context, id uint64) error
	DeleteLightweight(ctx context.Context, id uint64) error
	Truncate(ctx context.Context) error
}

// Factory builds the Operations used by a command from its resolved config.
type Factory func(cfg *config.Config, logger *slog.Logger) (Operations, error)

func defaultFactory(cfg *config.Config, logger *slog.Logger) (Operations, error) {
	return loader.FromConfig(cfg, logger)
}

type app struct {
	factory Factory
	stdout  io.Writer
	stderr  io.Writer
	lookup  func(string) (string, bool)

	configPath string
	connection string
	table      string
	verbose    bool
}

type Option func(*app)

func WithFactory(f Factory) Option {
	return func(a *app) {
		a.factory = f
	}
}

// WithOutput redirects command output and logs.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *app) {
		a.stdout, a.stderr = stdout, stderr
	}
}

// WithEnv replaces os.LookupEnv when resolving configuration.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(a *app) {
		a.lookup = lookup
	}
}

// NewRootCommand returns the chcrud command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		factory: defaultFactory,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		lookup:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "chcrud",
		Short: "Load and inspect orders in a ClickHouse table",
		Long: `chcrud writes orders to a single ClickHouse table and reads them back.

Connection settings come from chcrud.yaml, CLICKHOUSE_* environment variables
(a .env file is honoured) and the flags below, in that order.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error
  10 - Invalid configuration
  11 - Connection failed
  13 - Statement rejected
  14 - Transfer rejected`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to the config file (default ./"+config.FileName+" when present)")
	flags.StringVar(&a.connection, "connection", "", "Connection string, e.g. Host=localhost;Port=8123;Database=test")
	flags.StringVarP(&a.table, "table", "t", "", "Destination table (database.table)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.insertCommand(),
		a.insertBulkCommand(),
		a.queryCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.truncateCommand(),
		a.demoCommand(),
	)
	return root
}

// Execute runs the root command with os.Args. An interrupt cancels the
// running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		root.PrintErrln("Error:", err)
	}
	return err
}

// resolve loads the configuration for cmd and builds its loader.
func (a *app) resolve(cmd *cobra.Command) (*config.Config, Operations, *slog.Logger, error) {
	_ = godotenv.Load()

	cfg := config.Default()
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, nil, nil, &configError{err: err}
		}
	}
	if err := cfg.ApplyEnv(a.lookup); err != nil {
		return nil, nil, nil, &configError{err: err}
	}
	if a.connection != "" {
		conn, err := config.ParseConnectionString(a.connection)
		if err != nil {
			return nil, nil, nil, &configError{err: err}
		}
		cfg.Connection = conn
	}
	if a.table != "" {
		cfg.Table = a.table
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, &configError{err: err}
	}

	logger := logging.New(a.stderr, logging.ParseLevel(cfg.LogLevel),
		slog.String("table", cfg.Table),
	)
	logger.Debug("connection resolved", slog.String("connection", cfg.Connection.String()))
	ops, err := a.factory(cfg, logger)
	if err != nil {
		return nil, nil, nil, &configError{err: err}
	}
	return cfg, ops, logger, nil
}
