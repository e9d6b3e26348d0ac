package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mselser95/swap-arb/pkg/types"
	"go.uber.org/zap"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing records.
type ConsoleStorage struct {
	logger *zap.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewConsoleStorage creates a console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return NewConsoleStorageWriter(logger, os.Stdout)
}

// NewConsoleStorageWriter creates a console storage writing to out.
func NewConsoleStorageWriter(logger *zap.Logger, out io.Writer) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
		out:    out,
	}
}

// StoreRecord pretty-prints an execution record.
func (c *ConsoleStorage) StoreRecord(_ context.Context, rec types.ExecutionRecord) error {
	var b strings.Builder

	status := "✅ EXECUTED"
	if !rec.Success {
		status = "❌ FAILED"
	}

	fmt.Fprintln(&b, "\n"+rule)
	fmt.Fprintf(&b, "%s  %s\n", status, strings.ToUpper(string(rec.Kind)))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "ID:        %s\n", shortID(rec.ID))
	fmt.Fprintf(&b, "Route:     %s\n", rec.Route)
	fmt.Fprintf(&b, "Time:      %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	if rec.Reference != "" {
		fmt.Fprintf(&b, "Reference: %s\n", rec.Reference)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "💰 RESULT\n")
	fmt.Fprintf(&b, "  Input:     %s\n", rec.InputAmount.StringFixed(6))
	fmt.Fprintf(&b, "  Output:    %s\n", rec.ResultAmount.StringFixed(6))
	fmt.Fprintf(&b, "  Profit:    %s\n", rec.Profit().StringFixed(6))
	if rec.Error != "" {
		fmt.Fprintf(&b, "  Error:     %s\n", rec.Error)
	}
	fmt.Fprintln(&b, rule)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := io.WriteString(c.out, b.String())
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
