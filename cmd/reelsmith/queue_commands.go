package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/ipc"
	"reelsmith/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the batch queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					stats = status.QueueStats
				} else {
					storeStats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range storeStats {
						stats[string(status)] = count
					}
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var wire []ipc.QueueBatch
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					wire = resp.Batches
				} else {
					statuses := make([]queue.Status, 0, len(listStatuses))
					for _, raw := range listStatuses {
						parsed, ok := queue.ParseStatus(raw)
						if !ok {
							return fmt.Errorf("unknown status %q", raw)
						}
						statuses = append(statuses, parsed)
					}
					batches, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					wire = make([]ipc.QueueBatch, 0, len(batches))
					for _, batch := range batches {
						wire = append(wire, batchToWire(batch))
					}
				}

				if len(wire) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Images", "Created"},
					buildQueueListRows(wire),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by batch status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batchID>",
		Short: "Show details for a single batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid batch id %q", args[0])
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.QueueDescribe(id)
					if err != nil {
						return err
					}
					printBatchDetail(out, resp.Batch, resp.Images)
					return nil
				}

				batch, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if batch == nil {
					return fmt.Errorf("batch %d not found", id)
				}
				images, err := store.ImagesForBatch(cmd.Context(), id)
				if err != nil {
					return err
				}
				wireImages := make([]ipc.BatchImage, 0, len(images))
				for _, img := range images {
					wireImages = append(wireImages, ipc.FromImage(img))
				}
				printBatchDetail(out, batchToWire(batch), wireImages)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove batches from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error
				var label string

				switch {
				case clearCompleted:
					label = "completed batches"
					if client != nil {
						var resp *ipc.QueueClearCompletedResponse
						resp, err = client.QueueClearCompleted()
						if resp != nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearCompleted(cmd.Context())
					}
				case clearFailed:
					label = "failed batches"
					if client != nil {
						var resp *ipc.QueueClearFailedResponse
						resp, err = client.QueueClearFailed()
						if resp != nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearFailed(cmd.Context())
					}
				default:
					label = "batches"
					if client != nil {
						var resp *ipc.QueueClearResponse
						resp, err = client.QueueClear()
						if resp != nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.Clear(cmd.Context())
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed batches")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed batches")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight batches to their previous stable status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					var resp *ipc.QueueResetResponse
					resp, err = client.QueueReset()
					if resp != nil {
						updated = resp.Updated
					}
				} else {
					updated, err = store.ResetStuckProcessing(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d batches\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [batchID...]",
		Short: "Retry failed batches",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid batch id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					var resp *ipc.QueueRetryResponse
					resp, err = client.QueueRetry(ids)
					if resp != nil {
						updated = resp.Updated
					}
				} else {
					updated, err = store.RetryFailed(cmd.Context(), ids...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed batches\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if detailed {
					return printDatabaseHealth(cmd, client, store)
				}

				var health queue.HealthSummary
				if client != nil {
					resp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = queue.HealthSummary{
						Total:      resp.Total,
						Collecting: resp.Collecting,
						Ready:      resp.Ready,
						Processing: resp.Processing,
						Failed:     resp.Failed,
						Completed:  resp.Completed,
					}
				} else {
					var err error
					health, err = store.Health(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "Total: %d\nCollecting: %d\nReady: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Collecting,
					health.Ready,
					health.Processing,
					health.Failed,
					health.Completed,
				)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&detailed, "database", false, "Show detailed database diagnostics")
	return cmd
}

func printDatabaseHealth(cmd *cobra.Command, client *ipc.Client, store *queue.Store) error {
	out := cmd.OutOrStdout()
	var health queue.DatabaseHealth
	if client != nil {
		resp, err := client.DatabaseHealth()
		if err != nil {
			return err
		}
		health = queue.DatabaseHealth{
			DBPath:           resp.DBPath,
			DatabaseExists:   resp.DatabaseExists,
			DatabaseReadable: resp.DatabaseReadable,
			SchemaVersion:    resp.SchemaVersion,
			TableExists:      resp.TableExists,
			ColumnsPresent:   resp.ColumnsPresent,
			MissingColumns:   resp.MissingColumns,
			IntegrityCheck:   resp.IntegrityCheck,
			TotalBatches:     resp.TotalBatches,
			Error:            resp.Error,
		}
	} else {
		var err error
		health, err = store.CheckHealth(cmd.Context())
		if err != nil && health.Error == "" {
			return err
		}
	}

	fmt.Fprintf(out, "Database: %s\n", health.DBPath)
	fmt.Fprintf(out, "  Exists: %s\n", yesNo(health.DatabaseExists))
	fmt.Fprintf(out, "  Readable: %s\n", yesNo(health.DatabaseReadable))
	fmt.Fprintf(out, "  Schema version: %s\n", health.SchemaVersion)
	fmt.Fprintf(out, "  Table present: %s\n", yesNo(health.TableExists))
	fmt.Fprintf(out, "  Integrity: %s\n", yesNo(health.IntegrityCheck))
	fmt.Fprintf(out, "  Batches: %d\n", health.TotalBatches)
	if len(health.MissingColumns) > 0 {
		fmt.Fprintf(out, "  Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
	}
	if health.Error != "" {
		fmt.Fprintf(out, "  Error: %s\n", health.Error)
	}
	return nil
}
