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

package loader

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

type fakeBatch struct {
	driver.Batch
	rows      [][]any
	appendErr error
	sendErr   error
	sent      bool
	aborted   bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return b.sendErr
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

// fakeRows yields orders the way the driver scans the table columns.
type fakeRows struct {
	driver.Rows
	orders []order.Order
	// raw replaces the values derived from orders when set
	raw    [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	n := len(r.orders)
	if r.raw != nil {
		n = len(r.raw)
	}
	if r.pos >= n {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != 5 {
		return fmt.Errorf("expected 5 destinations, got %d", len(dest))
	}
	var values []any
	if r.raw != nil {
		values = r.raw[r.pos-1]
	} else {
		o := r.orders[r.pos-1]
		values = []any{o.ID, o.OrderDate, o.ProductID, uint8(o.OrderType), o.Amount}
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.Elem().Type() != reflect.TypeOf(v) {
			return fmt.Errorf("column %d: cannot scan %T into %T", i, v, dest[i])
		}
		target.Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

type fakeConn struct {
	execs      []string
	contexts   []context.Context
	prepared   []string
	queries    []string
	execErr    error
	prepareErr error
	queryErr   error
	batch      *fakeBatch
	rows       *fakeRows
	closed     int
}

func (c *fakeConn) Exec(ctx context.Context, query string, _ ...any) error {
	c.execs = append(c.execs, query)
	c.contexts = append(c.contexts, ctx)
	return c.execErr
}

func (c *fakeConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.prepared = append(c.prepared, query)
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	if c.batch == nil {
		c.batch = &fakeBatch{}
	}
	return c.batch, nil
}

func (c *fakeConn) Query(ctx context.Context, query string, _ ...any) (driver.Rows, error) {
	c.queries = append(c.queries, query)
	c.contexts = append(c.contexts, ctx)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.rows == nil {
		c.rows = &fakeRows{}
	}
	return c.rows, nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

// opener hands out conn and counts how many times it was asked for one.
type opener struct {
	conn   *fakeConn
	err    error
	opened int
}

func (o *opener) open(context.Context) (Conn, error) {
	o.opened++
	if o.err != nil {
		return nil, o.err
	}
	return o.conn, nil
}

type fakeColumnar struct {
	queries []ch.Query
	err     error
	closed  int
}

func (c *fakeColumnar) Do(_ context.Context, q ch.Query) error {
	c.queries = append(c.queries, q)
	return c.err
}

func (c *fakeColumnar) Close() error {
	c.closed++
	return nil
}

// sent is what clickhouse.Context attached to a statement's context.
type sent struct {
	queryID    string
	settings   map[string]any
	parameters map[string]string
}

// sentWith reads the query options stored in ctx by clickhouse.Context. The
// driver keeps them unexported, so they are read through reflection.
func sentWith(t *testing.T, ctx context.Context) sent {
	t.Helper()
	optionsType := reflect.TypeOf(clickhouse.QueryOptions{})
	v := reflect.ValueOf(ctx)
	for v.IsValid() {
		for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
			if v.IsNil() {
				t.Fatal("no clickhouse query options in context")
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			break
		}
		if val := v.FieldByName("val"); val.IsValid() && val.Kind() == reflect.Interface && !val.IsNil() && val.Elem().Type() == optionsType {
			return readOptions(val.Elem())
		}
		v = v.FieldByName("Context")
	}
	t.Fatal("no clickhouse query options in context")
	return sent{}
}

func readOptions(v reflect.Value) sent {
	s := sent{
		queryID:    v.FieldByName("queryID").String(),
		settings:   map[string]any{},
		parameters: map[string]string{},
	}
	settings := v.FieldByName("settings").MapRange()
	for settings.Next() {
		value := settings.Value()
		if value.Kind() == reflect.Interface {
			value = value.Elem()
		}
		switch value.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			s.settings[settings.Key().String()] = int(value.Int())
		default:
			s.settings[settings.Key().String()] = fmt.Sprint(value)
		}
	}
	parameters := v.FieldByName("parameters").MapRange()
	for parameters.Next() {
		s.parameters[parameters.Key().String()] = parameters.Value().String()
	}
	return s
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
