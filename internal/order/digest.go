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
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// Digest fingerprints a set of orders independently of their order, so the
// rows read back from the table can be compared with what was written.
// Duplicated orders contribute once per occurrence.
func Digest(orders []Order) uint64 {
	var sum uint64
	buf := make([]byte, 0, 48)
	for _, o := range orders {
		buf = appendCanonical(buf[:0], o.Normalize())
		sum += xxhash.Sum64(buf)
	}
	return sum
}

func appendCanonical(buf []byte, o Order) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, o.ID)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(o.OrderDate.Unix()))
	buf = binary.LittleEndian.AppendUint32(buf, o.ProductID)
	buf = append(buf, byte(o.OrderType))
	return append(buf, o.Amount.StringFixed(AmountScale)...)
}
