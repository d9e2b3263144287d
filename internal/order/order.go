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

// Package order holds the order record written to and read from the
// destination table, plus the record sources that feed the loader.
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept by the amount column (Decimal(12,6)).
const AmountScale = 6

// Columns is the positional column order used for bulk inserts and reads.
var Columns = []string{"id", "order_date", "product_id", "order_type", "amount"}

// Order is one row of the destination table.
type Order struct {
	ID        uint64
	OrderDate time.Time
	ProductID uint32
	OrderType int8
	Amount    decimal.Decimal
}

// Normalize returns o as the store keeps it: the date in UTC truncated to
// seconds and the amount rounded to AmountScale digits.
func (o Order) Normalize() Order {
	o.OrderDate = o.OrderDate.UTC().Truncate(time.Second)
	o.Amount = o.Amount.Round(AmountScale)
	return o
}

// Equal reports whether o and other hold the same values once normalized.
func (o Order) Equal(other Order) bool {
	a, b := o.Normalize(), other.Normalize()
	return a.ID == b.ID &&
		a.OrderDate.Equal(b.OrderDate) &&
		a.ProductID == b.ProductID &&
		a.OrderType == b.OrderType &&
		a.Amount.Equal(b.Amount)
}

func (o Order) String() string {
	n := o.Normalize()
	return fmt.Sprintf("%d - %s - %d - %d - %s",
		n.ID,
		n.OrderDate.Format(time.DateTime),
		n.ProductID,
		n.OrderType,
		n.Amount.StringFixed(AmountScale),
	)
}

// Sample returns the order inserted by the demo sequence.
func Sample() Order {
	return Order{
		ID:        1882682734613504000,
		OrderDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ProductID: 100,
		OrderType: 1,
		Amount:    decimal.RequireFromString("100.001"),
	}
}
