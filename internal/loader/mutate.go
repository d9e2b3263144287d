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

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

func (l *Loader) mutationSettings() clickhouse.QueryOption {
	return clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": l.mutationsSync,
	})
}

func (l *Loader) exec(ctx context.Context, op, query string, opts ...clickhouse.QueryOption) error {
	return l.do(ctx, op, KindStatement, func(ctx context.Context, conn Conn) error {
		return conn.Exec(ctx, query)
	}, opts...)
}

// Update sets the amount of the order with the given id (ALTER TABLE ... UPDATE).
func (l *Loader) Update(ctx context.Context, id uint64, amount decimal.Decimal) error {
	return l.exec(ctx, "update", l.statements.update,
		clickhouse.WithParameters(clickhouse.Parameters{
			"id":     idParameter(id),
			"amount": amount.StringFixed(order.AmountScale),
		}),
		l.mutationSettings(),
	)
}

// Delete removes the order with the given id through a mutation
// (ALTER TABLE ... DELETE), which rewrites the affected parts.
func (l *Loader) Delete(ctx context.Context, id uint64) error {
	return l.exec(ctx, "delete", l.statements.delete,
		clickhouse.WithParameters(clickhouse.Parameters{"id": idParameter(id)}),
		l.mutationSettings(),
	)
}

// DeleteLightweight removes the order with the given id with DELETE FROM,
// which masks the row and leaves the physical cleanup to later merges.
func (l *Loader) DeleteLightweight(ctx context.Context, id uint64) error {
	return l.exec(ctx, "delete_lightweight", l.statements.deleteLightweight,
		clickhouse.WithParameters(clickhouse.Parameters{"id": idParameter(id)}),
	)
}

// Truncate removes every row of the table.
func (l *Loader) Truncate(ctx context.Context) error {
	return l.exec(ctx, "truncate", l.statements.truncate)
}
