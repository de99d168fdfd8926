package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/postgres"
)

// Postgres reads the corpus from a table with integer id and text content
// columns, in id order.
type Postgres struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgres(client *postgres.Client, table string) *Postgres {
	return &Postgres{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "postgres-source", "table", table),
	}
}

func (p *Postgres) Name() string { return config.SourcePostgres }

// Ping lets the readiness check watch the corpus database.
func (p *Postgres) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

func (p *Postgres) Fetch(ctx context.Context) ([]index.Document, error) {
	query := fmt.Sprintf("SELECT id, content FROM %s ORDER BY id", pq.QuoteIdentifier(p.table))
	rows, err := p.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.table, err)
	}
	defer rows.Close()

	docs := make([]index.Document, 0)
	for rows.Next() {
		var (
			doc     index.Document
			content sql.NullString
		)
		if err := rows.Scan(&doc.ID, &content); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", p.table, err)
		}
		doc.Content = content.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", p.table, err)
	}
	p.logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

// Seed replaces the table contents with docs, creating the table if needed.
// id is not a key: rows sharing an id are kept and merged by the indexer,
// the same as duplicates in any other corpus.
func (p *Postgres) Seed(ctx context.Context, docs []index.Document) error {
	table := pq.QuoteIdentifier(p.table)
	err := p.client.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER NOT NULL, content TEXT NOT NULL)", table),
			fmt.Sprintf("TRUNCATE %s", table),
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("preparing %s: %w", p.table, err)
			}
		}
		copyIn, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, "id", "content"))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", p.table, err)
		}
		defer copyIn.Close()
		for _, doc := range docs {
			if _, err := copyIn.ExecContext(ctx, doc.ID, doc.Content); err != nil {
				return fmt.Errorf("copying document %d: %w", doc.ID, err)
			}
		}
		if _, err := copyIn.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy into %s: %w", p.table, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("corpus seeded", "documents", len(docs))
	return nil
}
