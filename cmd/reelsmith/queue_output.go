package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"reelsmith/internal/ipc"
	"reelsmith/internal/queue"
)

func formatStatusLabel(status string) string {
	trimmed := strings.TrimSpace(status)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}

	// Unknown statuses still get shown, after the known ones.
	known := make(map[string]struct{}, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		known[string(status)] = struct{}{}
	}
	extras := make([]string, 0)
	for status, count := range stats {
		if _, ok := known[status]; ok || count == 0 {
			continue
		}
		extras = append(extras, status)
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{formatStatusLabel(status), strconv.Itoa(stats[status])})
	}
	return rows
}

func buildQueueListRows(batches []ipc.QueueBatch) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		title := strings.TrimSpace(batch.Title)
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(batch.ID, 10),
			title,
			formatStatusLabel(batch.Status),
			strconv.Itoa(batch.ImageCount),
			batch.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func batchToWire(batch *queue.Batch) ipc.QueueBatch {
	return ipc.FromBatch(batch)
}

func printBatchDetail(out io.Writer, batch ipc.QueueBatch, images []ipc.BatchImage) {
	fmt.Fprintf(out, "Batch %d (%s)\n", batch.ID, batch.VideoID)
	fmt.Fprintf(out, "  Title:    %s\n", batch.Title)
	fmt.Fprintf(out, "  Status:   %s\n", formatStatusLabel(batch.Status))
	fmt.Fprintf(out, "  Images:   %d\n", batch.ImageCount)
	if batch.ProgressStage != "" {
		fmt.Fprintf(out, "  Progress: %s (%.0f%%)", batch.ProgressStage, batch.ProgressPercent)
		if batch.ProgressMessage != "" {
			fmt.Fprintf(out, " - %s", batch.ProgressMessage)
		}
		fmt.Fprintln(out)
	}
	if batch.VideoFile != "" {
		fmt.Fprintf(out, "  Video:    %s\n", batch.VideoFile)
	}
	if batch.VideoURL != "" {
		fmt.Fprintf(out, "  URL:      %s\n", batch.VideoURL)
	}
	if batch.SourceChannel != "" {
		fmt.Fprintf(out, "  Channel:  %s\n", batch.SourceChannel)
	}
	if batch.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", batch.ErrorMessage)
	}
	if len(images) > 0 {
		fmt.Fprintln(out, "  Collected images:")
		for _, img := range images {
			fmt.Fprintf(out, "    %s (%s %dx%d, %d bytes)\n", img.Path, img.Format, img.Width, img.Height, img.SizeBytes)
		}
	}
}

func shouldColorize(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

const (
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiReset  = "\033[0m"
)

func renderCheckLine(label string, ok bool, detail string, colorize bool) string {
	marker := "✓"
	color := ansiGreen
	if !ok {
		marker = "✗"
		color = ansiRed
	}
	if colorize {
		marker = color + marker + ansiReset
	}
	if detail == "" {
		return fmt.Sprintf("  %s %s", marker, label)
	}
	return fmt.Sprintf("  %s %s: %s", marker, label, detail)
}
