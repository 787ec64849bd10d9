package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSinkConfig configures the analytics sink.
type ClickHouseSinkConfig struct {
	Logger   *slog.Logger
	Addr     string
	Database string
	Username string
	Password string
	Secure   bool
}

func (cfg *ClickHouseSinkConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Addr == "" {
		return errors.New("clickhouse addr is required")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	return nil
}

// ClickHouseSink appends every emitted event to a single append-only
// table for analytics.
type ClickHouseSink struct {
	log  *slog.Logger
	conn driver.Conn
}

const eventsTableDDL = `
	CREATE TABLE IF NOT EXISTS feerouter_events (
		event_name LowCardinality(String),
		emitted_at DateTime64(3, 'UTC'),
		payload    String
	)
	ENGINE = MergeTree()
	ORDER BY (event_name, emitted_at)`

// NewClickHouseSink opens the connection and ensures the events table
// exists.
func NewClickHouseSink(ctx context.Context, cfg ClickHouseSinkConfig) (*ClickHouseSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	}
	if cfg.Secure {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, eventsTableDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	cfg.Logger.Info("events: clickhouse sink ready", "addr", cfg.Addr, "database", cfg.Database)
	return &ClickHouseSink{
		log:  cfg.Logger,
		conn: conn,
	}, nil
}

func (s *ClickHouseSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = s.conn.AsyncInsert(ctx,
		"INSERT INTO feerouter_events (event_name, emitted_at, payload) VALUES (?, ?, ?)",
		false,
		e.Name(), time.Now().UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
