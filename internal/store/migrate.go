package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/roshinpv1/promptshield/internal/database"
)

//go:embed schema.sql
var schema string

// Migrate applies the core schema to db. It is idempotent: every statement
// uses CREATE TABLE/INDEX IF NOT EXISTS, mirroring the teacher's single
// embedded-schema bootstrap for a project this size (internal/database's
// versioned migrator earns its keep at Gibson's table count, not ours).
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply core schema: %w", err)
	}
	return nil
}
