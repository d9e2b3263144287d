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
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

var errStopped = errors.New("iteration stopped")

// Query runs SELECT * against the table and calls fn for every row in the
// order the server returns them. If fn returns an error, iteration stops and
// that error is returned as is.
func (l *Loader) Query(ctx context.Context, fn func(order.Order) error) error {
	const op = "query"
	var (
		stopErr error
		count   int
	)
	err := l.do(ctx, op, KindStatement, func(ctx context.Context, conn Conn) error {
		rows, err := conn.Query(ctx, l.statements.selectAll)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id        uint64
				orderDate time.Time
				productID uint32
				orderType uint8
				amount    decimal.Decimal
			)
			if err := rows.Scan(&id, &orderDate, &productID, &orderType, &amount); err != nil {
				return err
			}
			if orderType > math.MaxInt8 {
				return errors.Errorf("order %d: order_type %d does not fit int8", id, orderType)
			}
			count++
			if err := fn(order.Order{
				ID:        id,
				OrderDate: orderDate.UTC(),
				ProductID: productID,
				OrderType: int8(orderType),
				Amount:    amount,
			}); err != nil {
				stopErr = err
				return errStopped
			}
		}
		return rows.Err()
	})
	if stopErr != nil {
		return stopErr
	}
	if err == nil {
		l.logger.Debug("orders read", slog.String("op", op), slog.Int("rows", count))
	}
	return err
}

// QueryAll collects every row of the table.
func (l *Loader) QueryAll(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	err := l.Query(ctx, func(o order.Order) error {
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
