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
	"io"
	"net"
	"syscall"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind uint8

const (
	// KindConnection covers dialing, authentication and broken connections.
	KindConnection Kind = iota + 1
	// KindStatement covers statements rejected by the server.
	KindStatement
	// KindTransfer covers batches rejected while being staged or sent.
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindStatement:
		return "statement"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// ErrColumnarDisabled is returned by InsertColumnar when the loader was
// built without a native columnar connection.
var ErrColumnarDisabled = errors.New("columnar insert is not configured")

// Error is returned by every Loader operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chcrud [%s]: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// server exception codes that mean the session itself was refused
const (
	codeUnknownUser          = 192
	codeWrongPassword        = 193
	codeRequiredPassword     = 194
	codeIPAddressNotAllowed  = 195
	codeAuthenticationFailed = 516
)

func newError(op string, fallback Kind, err error) *Error {
	return &Error{Op: op, Kind: classify(err, fallback), Err: err}
}

func classify(err error, fallback Kind) Kind {
	var exception *clickhouse.Exception
	if errors.As(err, &exception) {
		return exceptionKind(int(exception.Code), fallback)
	}
	var native *ch.Exception
	if errors.As(err, &native) {
		return exceptionKind(int(native.Code), fallback)
	}
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return KindConnection
	}
	return fallback
}

func exceptionKind(code int, fallback Kind) Kind {
	switch code {
	case codeUnknownUser, codeWrongPassword, codeRequiredPassword, codeIPAddressNotAllowed, codeAuthenticationFailed:
		return KindConnection
	}
	return fallback
}
