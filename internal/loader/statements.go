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
	"fmt"
	"strconv"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

type statements struct {
	insertSingle      string
	insertBulk        string
	selectAll         string
	update            string
	delete            string
	deleteLightweight string
	truncate          string
}

func newStatements(table string) statements {
	return statements{
		insertSingle:      fmt.Sprintf("INSERT INTO %s VALUES ({id:UInt64},{order_date:DateTime},{product_id:UInt32},{order_type:UInt8},{amount:Decimal(12,6)})", table),
		insertBulk:        fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(order.Columns, ", ")),
		selectAll:         fmt.Sprintf("SELECT * FROM %s", table),
		update:            fmt.Sprintf("ALTER TABLE %s UPDATE amount = {amount:Decimal(12,6)} WHERE id = {id:UInt64}", table),
		delete:            fmt.Sprintf("ALTER TABLE %s DELETE WHERE id = {id:UInt64}", table),
		deleteLightweight: fmt.Sprintf("DELETE FROM %s WHERE id = {id:UInt64}", table),
		truncate:          fmt.Sprintf("TRUNCATE TABLE %s", table),
	}
}

func idParameter(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// orderParameters renders o as server-side query parameters. The order date
// is sent as Unix seconds so the server timezone does not shift it.
func orderParameters(o order.Order) clickhouse.Parameters {
	return clickhouse.Parameters{
		"id":         idParameter(o.ID),
		"order_date": strconv.FormatInt(o.OrderDate.Unix(), 10),
		"product_id": strconv.FormatUint(uint64(o.ProductID), 10),
		"order_type": strconv.Itoa(int(o.OrderType)),
		"amount":     o.Amount.StringFixed(order.AmountScale),
	}
}

// orderType converts the signed in-memory category to the UInt8 column.
func orderType(o order.Order) (uint8, error) {
	if o.OrderType < 0 {
		return 0, errors.Errorf("order %d: order_type %d does not fit UInt8", o.ID, o.OrderType)
	}
	return uint8(o.OrderType), nil
}

// row returns o as a positional tuple in order.Columns order.
func row(o order.Order) ([]any, error) {
	typ, err := orderType(o)
	if err != nil {
		return nil, err
	}
	return []any{
		o.ID,
		o.OrderDate.UTC(),
		o.ProductID,
		typ,
		o.Amount.Round(order.AmountScale),
	}, nil
}
