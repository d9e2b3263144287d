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

package order

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Source produces n valid orders. The loader never generates data itself;
// callers inject whichever source they need.
type Source func(n int) []Order

var generatorEpoch = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	maxDayOffset  = 365 * 3
	maxProductID  = 10000
	maxOrderType  = 10
	maxAmountUnit = 100000
)

// Generator builds synthetic orders. IDs come from a snowflake node so they
// stay unique across calls; every other field is drawn from the seeded source.
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	node *snowflake.Node
}

// NewGenerator returns a Generator seeded with seed. node identifies the
// snowflake node (0-1023) and must differ between concurrent processes.
func NewGenerator(seed int64, node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &Generator{
		rand: rand.New(rand.NewSource(seed)),
		node: n,
	}, nil
}

// Generate returns n orders. n <= 0 yields an empty slice.
func (g *Generator) Generate(n int) []Order {
	if n <= 0 {
		return []Order{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	orders := make([]Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, g.next())
	}
	return orders
}

// Source adapts g to the Source signature.
func (g *Generator) Source() Source {
	return g.Generate
}

func (g *Generator) next() Order {
	micros := g.rand.Int63n(maxAmountUnit * 1_000_000)
	return Order{
		ID:        uint64(g.node.Generate().Int64()),
		OrderDate: generatorEpoch.AddDate(0, 0, g.rand.Intn(maxDayOffset+1)),
		ProductID: uint32(1 + g.rand.Intn(maxProductID)),
		OrderType: int8(1 + g.rand.Intn(maxOrderType)),
		Amount:    decimal.New(micros, -AmountScale),
	}
}
