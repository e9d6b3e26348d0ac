// Package publish fans engine snapshots and execution records out to Redis.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/swap-arb/internal/engine"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultStreamMaxLen = 1000
	latestTTL           = 10 * time.Minute
)

// Config holds connection parameters for the Redis publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Channel receives every snapshot via PUBLISH; Channel+":latest" holds the last one.
	Channel string
	// StreamMaxLen caps the execution record stream (approximate trimming).
	StreamMaxLen int64
	Logger       *zap.Logger
}

// RedisPublisher publishes snapshots on a pub/sub channel and appends execution
// records to a capped stream. It also satisfies storage.Storage.
type RedisPublisher struct {
	rdb       *redis.Client
	channel   string
	latestKey string
	streamKey string
	maxLen    int64
	logger    *zap.Logger
}

// NewRedisPublisher connects and pings Redis.
func NewRedisPublisher(ctx context.Context, cfg Config) (*RedisPublisher, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("redis channel cannot be empty")
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = defaultStreamMaxLen
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	cfg.Logger.Info("redis-publisher-connected",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel))

	return &RedisPublisher{
		rdb:       rdb,
		channel:   cfg.Channel,
		latestKey: cfg.Channel + ":latest",
		streamKey: cfg.Channel + ":executions",
		maxLen:    cfg.StreamMaxLen,
		logger:    cfg.Logger,
	}, nil
}

// PublishSnapshot publishes snap and stores it as the latest view.
func (p *RedisPublisher) PublishSnapshot(ctx context.Context, snap engine.Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.Set(ctx, p.latestKey, payload, latestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		PublishErrorsTotal.WithLabelValues("snapshot").Inc()
		return fmt.Errorf("redis: publish snapshot: %w", err)
	}

	SnapshotsPublishedTotal.Inc()
	return nil
}

// StoreRecord appends rec to the execution stream.
func (p *RedisPublisher) StoreRecord(ctx context.Context, rec types.ExecutionRecord) error {
	fields, err := recordFields(rec)
	if err != nil {
		return err
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		MaxLen: p.maxLen,
		Approx: true,
		Values: fields,
	}).Err()
	if err != nil {
		PublishErrorsTotal.WithLabelValues("record").Inc()
		return fmt.Errorf("redis: xadd record: %w", err)
	}

	RecordsPublishedTotal.Inc()
	return nil
}

// Run publishes every snapshot from snaps until ctx is done or snaps is closed.
func (p *RedisPublisher) Run(ctx context.Context, snaps <-chan engine.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := p.PublishSnapshot(ctx, snap); err != nil {
				p.logger.Warn("snapshot-publish-failed", zap.Error(err))
			}
		}
	}
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	p.logger.Info("closing-redis-publisher")
	return p.rdb.Close()
}

func encodeSnapshot(snap engine.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

// recordFields flattens rec into stream entry fields; the full record rides along as JSON.
func recordFields(rec types.ExecutionRecord) (map[string]interface{}, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	return map[string]interface{}{
		"id":      rec.ID,
		"route":   rec.Route,
		"kind":    string(rec.Kind),
		"success": rec.Success,
		"profit":  rec.Profit().String(),
		"ts_ms":   rec.Timestamp.UnixMilli(),
		"record":  string(payload),
	}, nil
}
