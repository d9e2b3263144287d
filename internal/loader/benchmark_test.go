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
	"testing"

	"github.com/yowko/ClickHouseCRUD/internal/config"
	"github.com/yowko/ClickHouseCRUD/internal/logging"
	"github.com/yowko/ClickHouseCRUD/internal/order"
	"github.com/yowko/ClickHouseCRUD/internal/testenv"
)

const benchmarkRows = 10_000

func BenchmarkInsert(b *testing.B) {
	b.Run("batch", func(b *testing.B) {
		benchmarkInsert(b, (*Loader).InsertBulk)
	})
	b.Run("columnar", func(b *testing.B) {
		benchmarkInsert(b, (*Loader).InsertColumnar)
	})
}

func benchmarkInsert(b *testing.B, insert func(*Loader, context.Context, []order.Order) error) {
	env := testenv.Get(b)
	l, err := FromConfig(env.Config(config.ProtocolNative, env.CreateOrdersTable(b)), logging.Discard())
	if err != nil {
		b.Fatal(err)
	}
	gen, err := order.NewGenerator(1, 1)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		orders := gen.Generate(benchmarkRows)
		b.StartTimer()
		if err := insert(l, ctx, orders); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(benchmarkRows*b.N)/b.Elapsed().Seconds(), "rows/s")
}
