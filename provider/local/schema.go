package local

import (
	"context"
	_ "embed"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed schema.sql
var schemaSQL string

// Setup creates the provider tables, one statement at a time since not
// every sqlite driver accepts multi-statement scripts. Statements are
// idempotent, so it is safe on an already initialized database.
func Setup(ctx context.Context, db *bun.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
