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

// Package loader writes orders to, and reads them from, a single ClickHouse
// table.
//
// Every operation acquires its own connection through an Opener and closes it
// before returning, whatever the outcome. Failures are returned as *Error so
// callers can tell connection, statement and transfer problems apart.
package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yowko/ClickHouseCRUD/internal/config"
	"github.com/yowko/ClickHouseCRUD/internal/logging"
)

const tracerName = "github.com/yowko/ClickHouseCRUD/internal/loader"

// Conn is the part of driver.Conn the loader uses.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	Close() error
}

// Opener acquires a connection for a single operation.
type Opener func(ctx context.Context) (Conn, error)

// ColumnarConn is the part of *ch.Client used for columnar inserts.
type ColumnarConn interface {
	Do(ctx context.Context, q ch.Query) error
	Close() error
}

type ColumnarOpener func(ctx context.Context) (ColumnarConn, error)

// Open returns an Opener that dials a new driver connection with opts and
// pings it before handing it out.
func Open(opts *clickhouse.Options) Opener {
	return func(ctx context.Context) (Conn, error) {
		conn, err := clickhouse.Open(opts)
		if err != nil {
			return nil, err
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// DialColumnar returns a ColumnarOpener dialing the native protocol with opts.
func DialColumnar(opts ch.Options) ColumnarOpener {
	return func(ctx context.Context) (ColumnarConn, error) {
		client, err := ch.Dial(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

type Loader struct {
	table         string
	statements    statements
	open          Opener
	openColumnar  ColumnarOpener
	logger        *slog.Logger
	tracer        trace.Tracer
	mutationsSync int
}

type Option func(*Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithColumnar(open ColumnarOpener) Option {
	return func(l *Loader) {
		l.openColumnar = open
	}
}

// WithMutationsSync sets the mutations_sync setting sent with Update and Delete.
func WithMutationsSync(level int) Option {
	return func(l *Loader) {
		l.mutationsSync = level
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loader) {
		l.tracer = tracer
	}
}

// New returns a Loader for table. table is "name" or "database.name".
func New(table string, open Opener, opts ...Option) (*Loader, error) {
	if err := config.ValidateTable(table); err != nil {
		return nil, err
	}
	l := &Loader{
		table:         table,
		statements:    newStatements(table),
		open:          open,
		logger:        logging.Discard(),
		tracer:        otel.Tracer(tracerName),
		mutationsSync: config.DefaultMutationsSync,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// FromConfig wires a Loader to the connection described by cfg. The columnar
// path dials the server's native port.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Loader, error) {
	return New(cfg.Table, Open(cfg.Connection.Options()),
		WithLogger(logger),
		WithColumnar(DialColumnar(nativeOptions(cfg.Connection))),
		WithMutationsSync(cfg.MutationsSync),
	)
}

func nativeOptions(conn config.Connection) ch.Options {
	opts := ch.Options{
		Address:     conn.NativeAddr(),
		Database:    conn.Database,
		User:        conn.Username,
		Password:    conn.Password,
		DialTimeout: conn.Timeout,
		TLS:         conn.NativeTLS(),
	}
	if conn.Compression {
		opts.Compression = ch.CompressionLZ4
	}
	return opts
}

func (l *Loader) Table() string {
	return l.table
}

// call carries the per-operation query ID and span.
type call struct {
	op      string
	queryID string
	span    trace.Span
	start   time.Time
}

func (l *Loader) begin(ctx context.Context, op string) (context.Context, *call) {
	ctx, span := l.tracer.Start(ctx, "loader."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "clickhouse"),
			attribute.String("db.sql.table", l.table),
		),
	)
	return ctx, &call{
		op:      op,
		queryID: uuid.NewString(),
		span:    span,
		start:   time.Now(),
	}
}

// end records the outcome of c and returns err unchanged.
func (l *Loader) end(c *call, err error, attrs ...slog.Attr) error {
	defer c.span.End()
	attrs = append(attrs,
		slog.String("op", c.op),
		slog.String("table", l.table),
		slog.String("query_id", c.queryID),
		slog.Duration("elapsed", time.Since(c.start)),
	)
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
		l.logger.LogAttrs(context.Background(), slog.LevelDebug, "operation failed", append(attrs, slog.Any("error", err))...)
		return err
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "operation done", attrs...)
	return nil
}

// do runs fn on a fresh connection that is closed before do returns. opts are
// applied to the query context together with the query ID and span.
// fn returning errStopped ends the call without an error.
func (l *Loader) do(ctx context.Context, op string, fallback Kind, fn func(ctx context.Context, conn Conn) error, opts ...clickhouse.QueryOption) error {
	ctx, c := l.begin(ctx, op)
	opts = append(opts,
		clickhouse.WithQueryID(c.queryID),
		clickhouse.WithSpan(c.span.SpanContext()),
	)
	ctx = clickhouse.Context(ctx, opts...)

	conn, err := l.open(ctx)
	if err != nil {
		return l.end(c, newError(op, KindConnection, err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			l.logger.Warn("close connection", slog.String("op", op), slog.Any("error", err))
		}
	}()
	if err := fn(ctx, conn); err != nil && !errors.Is(err, errStopped) {
		var e *Error
		if errors.As(err, &e) {
			return l.end(c, err)
		}
		return l.end(c, newError(op, fallback, err))
	}
	return l.end(c, nil)
}
