package app

import (
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-federation/internal/config"
	"github.com/stacklok/toolhive-federation/internal/schema"
)

// seedSchemas loads the configured schemas into a new store
func seedSchemas(seeds []config.SchemaSeed) (*schema.Store, error) {
	store := schema.NewStore()
	for i, seed := range seeds {
		rec, err := store.Put(seed.Repository, seed.Record)
		if err != nil {
			return nil, fmt.Errorf("failed to seed schemas[%d] (%s): %w", i, seed.Name, err)
		}
		slog.Debug("Seeded schema", "repository_id", seed.Repository, "schema_id", rec.SchemaID, "name", rec.Name)
	}
	return store, nil
}
