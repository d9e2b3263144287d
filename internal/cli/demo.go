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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (a *app) demoCommand() *cobra.Command {
	var (
		bulk int
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the sample insert/query/update/delete sequence",
		Long: `Run the sample sequence against the table:

  insert the sample order, query, update its amount to 100.002, query,
  delete it, query.

With --bulk N, N generated orders are inserted in one batch first. A failing
step is logged and the sequence moves on; the command itself always succeeds
once the configuration is valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			gen, err := order.NewGenerator(seed, 1)
			if err != nil {
				return &usageError{err: err}
			}
			a.runSteps(cmd, logger, demoSteps(cmd, ops, gen.Source(), bulk))
			return nil
		},
	}
	cmd.Flags().IntVar(&bulk, "bulk", 0, "Insert this many generated orders before the sample")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for --bulk (default: current time)")
	return cmd
}

func demoSteps(cmd *cobra.Command, ops Operations, source order.Source, bulk int) []step {
	sample := order.Sample()
	query := step{name: "query", run: func(ctx context.Context) error {
		return ops.Query(ctx, func(o order.Order) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), o)
			return err
		})
	}}
	var steps []step
	if bulk > 0 {
		steps = append(steps, step{name: "insert_bulk", run: func(ctx context.Context) error {
			return ops.InsertBulk(ctx, source(bulk))
		}})
	}
	return append(steps,
		step{name: "insert_single", run: func(ctx context.Context) error {
			return ops.InsertSingle(ctx, sample)
		}},
		query,
		step{name: "update", run: func(ctx context.Context) error {
			return ops.Update(ctx, sample.ID, decimal.RequireFromString("100.002"))
		}},
		query,
		step{name: "delete", run: func(ctx context.Context) error {
			return ops.Delete(ctx, sample.ID)
		}},
		query,
	)
}

// runSteps runs every step in order. Failures are logged and do not stop the
// sequence.
func (a *app) runSteps(cmd *cobra.Command, logger *slog.Logger, steps []step) {
	for _, s := range steps {
		if err := s.run(cmd.Context()); err != nil {
			logger.Error("step failed", slog.String("step", s.name), slog.Any("error", err))
			continue
		}
		logger.Info("step done", slog.String("step", s.name))
	}
}
