package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/storage"
	"github.com/sirupsen/logrus"
)

var _ storage.SwapStore = (*ClickHouseStore)(nil)

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS swaps (
		tx_hash          String,
		approval_tx_hash String,
		timestamp        DateTime64(3, 'UTC'),
		pair             LowCardinality(String),
		token_in         LowCardinality(String),
		token_out        LowCardinality(String),
		amount_in        String,
		amount_out       String,
		minimum_received String,
		price            String,
		status           LowCardinality(String),
		error            String,
		router           LowCardinality(String),
		fallback         Bool
	) ENGINE = MergeTree
	ORDER BY (pair, timestamp)
`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore is the long-term swap history.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// NewClickHouseStore connects, pings and makes sure the swaps table exists.
func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createSwapsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create swaps table: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO swaps (
			tx_hash, approval_tx_hash, timestamp, pair, token_in, token_out,
			amount_in, amount_out, minimum_received, price, status, error, router, fallback
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.TxHash,
		swap.ApprovalTxHash,
		swap.Timestamp,
		swap.Pair,
		swap.TokenIn,
		swap.TokenOut,
		swap.AmountIn,
		swap.AmountOut,
		swap.MinimumReceived,
		swap.Price,
		swap.Status,
		swap.Error,
		swap.Router,
		swap.Fallback,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
