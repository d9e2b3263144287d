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

package cli

import (
	"errors"

	"github.com/yowko/ClickHouseCRUD/internal/loader"
)

// Exit codes, following the Unix convention of 1 for general errors and 2
// for command line misuse.
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitUsageError      = 2
	ExitPanic           = 3
	ExitConfigError     = 10
	ExitConnectionError = 11
	ExitStatementError  = 13
	ExitTransferError   = 14
)

type configError struct {
	err error
}

func (e *configError) Error() string {
	return "configuration: " + e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// ExitCodeForError maps an error returned by Execute to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		usage *usageError
		cfg   *configError
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfg):
		return ExitConfigError
	}
	if kind, ok := loader.KindOf(err); ok {
		switch kind {
		case loader.KindConnection:
			return ExitConnectionError
		case loader.KindStatement:
			return ExitStatementError
		case loader.KindTransfer:
			return ExitTransferError
		}
	}
	return ExitGeneralError
}
