// Package postgres opens pooled lib/pq connections for the corpus store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
)

type Client struct {
	DB *sql.DB
}

// New opens a pool sized from cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn inside a transaction, rolling back when fn fails.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rollback aborts tx after cause. The returned error always matches cause
// under errors.Is; a failed rollback is joined to it.
func rollback(tx interface{ Rollback() error }, cause error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return errors.Join(cause, fmt.Errorf("rolling back: %w", rbErr))
	}
	return cause
}
