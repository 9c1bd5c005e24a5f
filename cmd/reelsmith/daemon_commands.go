package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start queue processing in the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Started {
					fmt.Fprintln(stdout, "Daemon started")
					return nil
				}
				if strings.Contains(resp.Message, "already running") {
					fmt.Fprintln(stdout, "Daemon already running")
					return nil
				}
				fmt.Fprintln(stdout, resp.Message)
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop queue processing in the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				fmt.Fprintln(stdout, "System Status")
				runningDetail := fmt.Sprintf("pid %d", status.PID)
				fmt.Fprintln(stdout, renderCheckLine("Daemon running", status.Running, runningDetail, colorize))
				if status.LastError != "" {
					fmt.Fprintln(stdout, renderCheckLine("Last error", false, status.LastError, colorize))
				}
				fmt.Fprintln(stdout)

				fmt.Fprintln(stdout, "Dependencies")
				for _, dep := range status.Dependencies {
					detail := dep.Detail
					if dep.Available && detail == "" {
						detail = fmt.Sprintf("command: %s", dep.Command)
					}
					fmt.Fprintln(stdout, renderCheckLine(dep.Name, dep.Available, detail, colorize))
				}
				fmt.Fprintln(stdout)

				fmt.Fprintln(stdout, "Stages")
				for _, health := range status.StageHealth {
					fmt.Fprintln(stdout, renderCheckLine(health.Name, health.Ready, health.Detail, colorize))
				}
				fmt.Fprintln(stdout)

				fmt.Fprintln(stdout, "Queue Status")
				rows := buildQueueStatusRows(status.QueueStats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}
