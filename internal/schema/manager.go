// Package schema declares the constraints and indexes the graph relies on.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

// Constraint declares that property must be unique among nodes with label.
type Constraint struct {
	Label    string
	Property string
}

// Index declares a lookup index on label/property.
type Index struct {
	Label    string
	Property string
}

// Manager applies a declared schema to a store. Every operation is
// idempotent; re-applying an existing declaration is a no-op.
type Manager struct {
	store  graph.Store
	logger *slog.Logger
}

func NewManager(store graph.Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Apply declares every constraint and index, constraints first. Ingestion
// should not start until Apply has succeeded, otherwise uniqueness is not
// enforced for the initial writes.
func (m *Manager) Apply(ctx context.Context, constraints []Constraint, indexes []Index) error {
	for _, c := range constraints {
		if err := m.store.EnsureUniqueConstraint(ctx, c.Label, c.Property); err != nil {
			return fmt.Errorf("constraint %s.%s: %w", c.Label, c.Property, err)
		}
		m.logger.Debug("constraint ensured", "label", c.Label, "property", c.Property)
	}
	for _, idx := range indexes {
		if err := m.store.EnsureIndex(ctx, idx.Label, idx.Property); err != nil {
			return fmt.Errorf("index %s.%s: %w", idx.Label, idx.Property, err)
		}
		m.logger.Debug("index ensured", "label", idx.Label, "property", idx.Property)
	}
	return nil
}

// Defaults is the baseline schema: id uniqueness on the generic entity
// label plus a text lookup index.
func Defaults() ([]Constraint, []Index) {
	return []Constraint{{Label: "Entity", Property: "id"}},
		[]Index{{Label: "Entity", Property: "text"}}
}
