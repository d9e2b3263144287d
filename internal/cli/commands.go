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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yowko/ClickHouseCRUD/internal/order"
)

var dateLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected one of %s", s, strings.Join(dateLayouts, ", "))
}

func (a *app) insertCommand() *cobra.Command {
	sample := order.Sample()
	var (
		id        uint64
		date      string
		productID uint32
		orderType int8
		amount    string
	)
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert one order with a parameterized statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderDate, err := parseDate(date)
			if err != nil {
				return &usageError{err: err}
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return &usageError{err: fmt.Errorf("invalid amount %q: %w", amount, err)}
			}
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			o := order.Order{
				ID:        id,
				OrderDate: orderDate,
				ProductID: productID,
				OrderType: orderType,
				Amount:    value,
			}
			if err := ops.InsertSingle(cmd.Context(), o); err != nil {
				return err
			}
			logger.Info("order inserted", slog.Uint64("id", o.ID))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Uint64Var(&id, "id", sample.ID, "Order id")
	flags.StringVar(&date, "date", sample.OrderDate.Format(time.DateTime), "Order date in UTC")
	flags.Uint32Var(&productID, "product", sample.ProductID, "Product id")
	flags.Int8Var(&orderType, "type", sample.OrderType, "Order type (1-10)")
	flags.StringVar(&amount, "amount", sample.Amount.String(), "Amount, up to 6 fractional digits")
	return cmd
}

func (a *app) insertBulkCommand() *cobra.Command {
	var (
		count    int
		seed     int64
		node     int64
		columnar bool
	)
	cmd := &cobra.Command{
		Use:   "insert-bulk",
		Short: "Insert a batch of generated orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return &usageError{err: fmt.Errorf("--count must be positive, got %d", count)}
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			gen, err := order.NewGenerator(seed, node)
			if err != nil {
				return &usageError{err: err}
			}
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			orders := gen.Generate(count)
			insert := ops.InsertBulk
			if columnar {
				insert = ops.InsertColumnar
			}
			if err := insert(cmd.Context(), orders); err != nil {
				return err
			}
			logger.Info("batch inserted",
				slog.Int("rows", len(orders)),
				slog.Int64("seed", seed),
				slog.Bool("columnar", columnar),
				slog.String("digest", fmt.Sprintf("%016x", order.Digest(orders))),
			)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&count, "count", "n", 10, "Number of orders to generate")
	flags.Int64Var(&seed, "seed", 0, "Random seed (default: current time)")
	flags.Int64Var(&node, "node", 1, "Snowflake node id used for order ids (0-1023)")
	flags.BoolVar(&columnar, "columnar", false, "Send the batch as native columns over the native protocol")
	return cmd
}

func (a *app) queryCommand() *cobra.Command {
	var digest bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print every order in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ops, _, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			var orders []order.Order
			err = ops.Query(cmd.Context(), func(o order.Order) error {
				if digest {
					orders = append(orders, o)
					return nil
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), o)
				return err
			})
			if err != nil {
				return err
			}
			if digest {
				fmt.Fprintf(cmd.OutOrStdout(), "rows=%d digest=%016x\n", len(orders), order.Digest(orders))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&digest, "digest", false, "Print the row count and set digest instead of the rows")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var (
		id     uint64
		amount string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set the amount of one order (ALTER TABLE ... UPDATE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return &usageError{err: fmt.Errorf("invalid amount %q: %w", amount, err)}
			}
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			if err := ops.Update(cmd.Context(), id, value); err != nil {
				return err
			}
			logger.Info("order updated", slog.Uint64("id", id), slog.String("amount", value.String()))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", order.Sample().ID, "Order id")
	cmd.Flags().StringVar(&amount, "amount", "100.002", "New amount")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var (
		id          uint64
		lightweight bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one order",
		Long: `Delete one order.

By default the row is removed with a mutation (ALTER TABLE ... DELETE), which
rewrites the affected data parts. --lightweight uses DELETE FROM instead, which
masks the row immediately and leaves the cleanup to background merges.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			del := ops.Delete
			if lightweight {
				del = ops.DeleteLightweight
			}
			if err := del(cmd.Context(), id); err != nil {
				return err
			}
			logger.Info("order deleted", slog.Uint64("id", id), slog.Bool("lightweight", lightweight))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&id, "id", order.Sample().ID, "Order id")
	cmd.Flags().BoolVar(&lightweight, "lightweight", false, "Use a lightweight DELETE FROM")
	return cmd
}

func (a *app) truncateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate",
		Short: "Remove every order from the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ops, logger, err := a.resolve(cmd)
			if err != nil {
				return err
			}
			if err := ops.Truncate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("table truncated")
			return nil
		},
	}
}
