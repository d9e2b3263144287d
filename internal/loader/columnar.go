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

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

const amountType proto.ColumnType = "Decimal(12, 6)"

// orderColumns holds a set of orders laid out column by column.
type orderColumns struct {
	id        proto.ColUInt64
	orderDate proto.ColDateTime
	productID proto.ColUInt32
	orderType proto.ColUInt8
	amount    proto.ColDecimal64
}

func newOrderColumns(orders []order.Order) (*orderColumns, error) {
	c := &orderColumns{}
	for _, o := range orders {
		typ, err := orderType(o)
		if err != nil {
			return nil, err
		}
		n := o.Normalize()
		c.id.Append(n.ID)
		c.orderDate.Append(n.OrderDate)
		c.productID.Append(n.ProductID)
		c.orderType.Append(typ)
		c.amount.Append(proto.Decimal64(n.Amount.Shift(order.AmountScale).IntPart()))
	}
	return c, nil
}

func (c *orderColumns) input() proto.Input {
	return proto.Input{
		{Name: "id", Data: &c.id},
		{Name: "order_date", Data: &c.orderDate},
		{Name: "product_id", Data: &c.productID},
		{Name: "order_type", Data: &c.orderType},
		{Name: "amount", Data: proto.Alias(&c.amount, amountType)},
	}
}

// InsertColumnar writes orders as a single native block built column by
// column. It needs a loader created with WithColumnar.
func (l *Loader) InsertColumnar(ctx context.Context, orders []order.Order) error {
	const op = "insert_columnar"
	if l.openColumnar == nil {
		return &Error{Op: op, Kind: KindConnection, Err: ErrColumnarDisabled}
	}
	if len(orders) == 0 {
		return nil
	}
	ctx, c := l.begin(ctx, op)
	columns, err := newOrderColumns(orders)
	if err != nil {
		return l.end(c, &Error{Op: op, Kind: KindTransfer, Err: err})
	}
	client, err := l.openColumnar(ctx)
	if err != nil {
		return l.end(c, newError(op, KindConnection, err))
	}
	defer func() {
		if err := client.Close(); err != nil {
			l.logger.Warn("close connection", slog.String("op", op), slog.Any("error", err))
		}
	}()
	if err := client.Do(ctx, ch.Query{
		Body:    l.statements.insertBulk + " VALUES",
		QueryID: c.queryID,
		Input:   columns.input(),
	}); err != nil {
		return l.end(c, newError(op, KindTransfer, err))
	}
	l.logger.Info("orders inserted", slog.String("op", op), slog.Int("rows", len(orders)))
	return l.end(c, nil)
}
