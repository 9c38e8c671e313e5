package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

// manifestSchema is applied by EnsureSchema.
const manifestSchema = `
CREATE TABLE IF NOT EXISTS manifest_entries (
    manifest    TEXT    NOT NULL,
    position    INTEGER NOT NULL,
    document_id TEXT    NOT NULL,
    PRIMARY KEY (manifest, position)
)`

// PostgresManifest lists the documents of a named manifest stored in the
// manifest_entries table, ordered by position.
type PostgresManifest struct {
	client *postgres.Client
	name   string
}

func NewPostgresManifest(client *postgres.Client, name string) *PostgresManifest {
	return &PostgresManifest{client: client, name: name}
}

// EnsureSchema creates the manifest_entries table if it does not exist.
func (p *PostgresManifest) EnsureSchema(ctx context.Context) error {
	return p.client.EnsureTable(ctx, "manifest_entries", manifestSchema)
}

// Replace stores docs as the manifest's complete, ordered content.
func (p *PostgresManifest) Replace(ctx context.Context, docs []string) error {
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM manifest_entries WHERE manifest = $1`, p.name); err != nil {
			return fmt.Errorf("clearing manifest %s: %w", p.name, err)
		}
		for i, docID := range docs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO manifest_entries (manifest, position, document_id) VALUES ($1, $2, $3)`,
				p.name, i, docID,
			); err != nil {
				return fmt.Errorf("inserting %s into manifest %s: %w", docID, p.name, err)
			}
		}
		return nil
	})
}

func (p *PostgresManifest) List(ctx context.Context) ([]string, error) {
	docs, err := p.client.QueryStrings(ctx,
		`SELECT document_id FROM manifest_entries WHERE manifest = $1 ORDER BY position`,
		p.name,
	)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrManifestNotFound, http.StatusServiceUnavailable,
			"reading manifest %s: %v", p.name, err)
	}
	if len(docs) == 0 {
		return nil, apperrors.Newf(apperrors.ErrManifestNotFound, http.StatusNotFound, "manifest %s has no entries", p.name)
	}
	return docs, nil
}
