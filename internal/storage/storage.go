// Package storage persists settled execution records.
package storage

import (
	"context"

	"github.com/mselser95/swap-arb/pkg/types"
)

// Storage is the sink for settled execution records.
type Storage interface {
	// StoreRecord stores one execution record.
	StoreRecord(ctx context.Context, rec types.ExecutionRecord) error

	// Close releases the sink.
	Close() error
}

// NopStorage discards records.
type NopStorage struct{}

// StoreRecord implements Storage.
func (NopStorage) StoreRecord(context.Context, types.ExecutionRecord) error { return nil }

// Close implements Storage.
func (NopStorage) Close() error { return nil }
