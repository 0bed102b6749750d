package graph

import (
	"context"

	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Direction selects which edges Neighbors follows from a node.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Store is the persistence contract for the knowledge graph. Implementations
// must be safe for concurrent use. All write methods that accept a slice
// apply the whole slice in a single transaction: either every element
// commits or none do.
type Store interface {
	// EnsureUniqueConstraint declares a uniqueness constraint on
	// label/property. Declaring an existing constraint is a no-op.
	EnsureUniqueConstraint(ctx context.Context, label, property string) error

	// EnsureIndex declares a lookup index on label/property. Declaring an
	// existing index is a no-op.
	EnsureIndex(ctx context.Context, label, property string) error

	// MergeEntities upserts entities keyed by ID in one transaction.
	// Existing properties not present in the incoming entity are preserved.
	MergeEntities(ctx context.Context, entities []models.Entity) error

	// MergeRelationships upserts relationships keyed by
	// (source, target, type) in one transaction. A relationship whose
	// endpoint does not exist fails the transaction with
	// *UnresolvedReferenceError.
	MergeRelationships(ctx context.Context, rels []models.Relationship) error

	// UpdateEntityProperties overlays props onto an existing entity.
	// Returns *NotFoundError when the entity does not exist.
	UpdateEntityProperties(ctx context.Context, id string, props models.Properties) error

	// DeleteEntity removes an entity and its relationships.
	DeleteEntity(ctx context.Context, id string) error

	// DeleteEntitiesByLabel removes all entities carrying label, with
	// their relationships, and reports how many were removed.
	DeleteEntitiesByLabel(ctx context.Context, label string) (int64, error)

	// Clear removes every node and relationship.
	Clear(ctx context.Context) error

	// GetEntity fetches one entity by ID. Returns *NotFoundError when
	// absent.
	GetEntity(ctx context.Context, id string) (*models.Entity, error)

	// Entities streams all entities, optionally restricted to a label.
	// Pass "" for no filter. Ordering is deterministic by ID.
	Entities(ctx context.Context, label string) ([]models.Entity, error)

	// Relationships returns all relationships, ordered by (source,
	// target, type).
	Relationships(ctx context.Context) ([]models.Relationship, error)

	// Neighbors returns the relationships adjacent to the given entity
	// IDs in the requested direction, capped at limit per seed (0 means
	// no cap).
	Neighbors(ctx context.Context, ids []string, dir Direction, limit int) ([]models.Relationship, error)

	// SetEntityEmbedding stores an embedding vector on an entity.
	SetEntityEmbedding(ctx context.Context, id string, vec []float32) error

	// Statistics reports node and relationship counts, broken down by
	// label and type.
	Statistics(ctx context.Context) (*models.Statistics, error)

	// Schema reports the labels, relationship types, and property keys
	// currently present.
	Schema(ctx context.Context) (*models.SchemaInfo, error)

	// Run executes a read query with named parameters and returns the
	// raw records. Malformed queries yield *QuerySyntaxError, runtime
	// failures *QueryExecutionError.
	Run(ctx context.Context, query string, params map[string]any) ([]models.Record, error)

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}
