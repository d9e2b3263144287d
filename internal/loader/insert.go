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
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

// InsertSingle inserts o with a parameterized INSERT ... VALUES statement.
func (l *Loader) InsertSingle(ctx context.Context, o order.Order) error {
	return l.do(ctx, "insert_single", KindStatement, func(ctx context.Context, conn Conn) error {
		return conn.Exec(ctx, l.statements.insertSingle)
	}, clickhouse.WithParameters(orderParameters(o)))
}

// InsertBulk writes orders as one batch. The batch holds exactly len(orders)
// rows; atomicity is whatever the server gives a single insert block.
// An empty slice is a no-op.
func (l *Loader) InsertBulk(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	const op = "insert_bulk"
	return l.do(ctx, op, KindTransfer, func(ctx context.Context, conn Conn) error {
		batch, err := conn.PrepareBatch(ctx, l.statements.insertBulk)
		if err != nil {
			return newError(op, KindStatement, err)
		}
		if err := appendOrders(batch, orders); err != nil {
			if abortErr := batch.Abort(); abortErr != nil {
				l.logger.Warn("abort batch", slog.String("op", op), slog.Any("error", abortErr))
			}
			return err
		}
		if err := batch.Send(); err != nil {
			return err
		}
		l.logger.Info("orders inserted", slog.String("op", op), slog.Int("rows", len(orders)))
		return nil
	})
}

func appendOrders(batch driver.Batch, orders []order.Order) error {
	for _, o := range orders {
		values, err := row(o)
		if err != nil {
			return err
		}
		if err := batch.Append(values...); err != nil {
			return err
		}
	}
	return nil
}
