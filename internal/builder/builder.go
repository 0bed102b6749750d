// Package builder turns extracted entities and relationships into
// committed graph state, in batches.
package builder

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/metrics"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// ErrConfirmRequired guards destructive operations. Callers must pass an
// explicit confirmation flag before a clear or bulk delete runs.
var ErrConfirmRequired = errors.New("destructive operation requires explicit confirmation")

const defaultBatchSize = 500

// FailedBatch records one batch that did not commit, with the input range
// it covered and why it failed.
type FailedBatch struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Reason string `json:"reason"`
}

// BatchResult reports a partially-successful ingestion: committed counts
// plus every batch that failed. Err is non-nil when the run stopped early
// on cancellation.
type BatchResult struct {
	SuccessCount  int           `json:"success_count"`
	FailedBatches []FailedBatch `json:"failed_batches,omitempty"`
	Err           error         `json:"-"`
}

// Failed reports whether any batch did not commit.
func (r *BatchResult) Failed() bool {
	return len(r.FailedBatches) > 0 || r.Err != nil
}

// Builder writes entities and relationships into a Store in transactional
// batches. A failed batch is reported and skipped; later batches still run.
type Builder struct {
	store     graph.Store
	batchSize int
	logger    *slog.Logger
}

func New(store graph.Store, batchSize int, logger *slog.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Builder{store: store, batchSize: batchSize, logger: logger}
}

// AddEntities upserts entities in batches. Duplicate IDs within the input
// collapse to the last occurrence before batching, so one call can never
// write the same entity twice with different payloads.
func (b *Builder) AddEntities(ctx context.Context, entities []models.Entity) *BatchResult {
	deduped := dedupeEntities(entities)
	result := &BatchResult{}
	for start := 0; start < len(deduped); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		end := min(start+b.batchSize, len(deduped))
		batch := deduped[start:end]
		if err := b.store.MergeEntities(ctx, batch); err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				return result
			}
			b.logger.Warn("entity batch failed",
				"start", start, "end", end, "error", err)
			metrics.Inc(metrics.BatchesFailed)
			result.FailedBatches = append(result.FailedBatches, FailedBatch{
				Start: start, End: end, Reason: err.Error(),
			})
			continue
		}
		result.SuccessCount += len(batch)
		metrics.Add(metrics.EntitiesMerged, int64(len(batch)))
	}
	b.logger.Info("entities ingested",
		"requested", len(entities), "committed", result.SuccessCount,
		"failed_batches", len(result.FailedBatches))
	return result
}

// AddRelationships upserts relationships in batches. Duplicates within the
// input collapse by (source, target, type) to the last occurrence.
func (b *Builder) AddRelationships(ctx context.Context, rels []models.Relationship) *BatchResult {
	deduped := dedupeRelationships(rels)
	result := &BatchResult{}
	for start := 0; start < len(deduped); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		end := min(start+b.batchSize, len(deduped))
		batch := deduped[start:end]
		if err := b.store.MergeRelationships(ctx, batch); err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				return result
			}
			b.logger.Warn("relationship batch failed",
				"start", start, "end", end, "error", err)
			metrics.Inc(metrics.BatchesFailed)
			result.FailedBatches = append(result.FailedBatches, FailedBatch{
				Start: start, End: end, Reason: err.Error(),
			})
			continue
		}
		result.SuccessCount += len(batch)
		metrics.Add(metrics.RelationshipsMerged, int64(len(batch)))
	}
	b.logger.Info("relationships ingested",
		"requested", len(rels), "committed", result.SuccessCount,
		"failed_batches", len(result.FailedBatches))
	return result
}

// AddSubgraph ingests entities first, then relationships, so references
// within the same payload resolve.
func (b *Builder) AddSubgraph(ctx context.Context, sg models.Subgraph) (*BatchResult, *BatchResult) {
	entityResult := b.AddEntities(ctx, sg.Entities)
	if entityResult.Err != nil {
		return entityResult, &BatchResult{Err: entityResult.Err}
	}
	relResult := b.AddRelationships(ctx, sg.Relationships)
	return entityResult, relResult
}

// UpdateEntity overlays props onto an existing entity.
func (b *Builder) UpdateEntity(ctx context.Context, id string, props models.Properties) error {
	return b.store.UpdateEntityProperties(ctx, id, props)
}

// RemoveEntity deletes one entity and its relationships.
func (b *Builder) RemoveEntity(ctx context.Context, id string) error {
	return b.store.DeleteEntity(ctx, id)
}

// RemoveByLabel deletes every entity with the given label. Refuses to run
// without confirm.
func (b *Builder) RemoveByLabel(ctx context.Context, label string, confirm bool) (int64, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}
	n, err := b.store.DeleteEntitiesByLabel(ctx, label)
	if err != nil {
		return 0, err
	}
	b.logger.Info("entities removed by label", "label", label, "count", n)
	return n, nil
}

// Clear wipes the graph. Refuses to run without confirm.
func (b *Builder) Clear(ctx context.Context, confirm bool) error {
	if !confirm {
		return ErrConfirmRequired
	}
	if err := b.store.Clear(ctx); err != nil {
		return err
	}
	b.logger.Info("graph cleared")
	return nil
}

// Statistics reports committed counts from the store.
func (b *Builder) Statistics(ctx context.Context) (*models.Statistics, error) {
	return b.store.Statistics(ctx)
}

func dedupeEntities(entities []models.Entity) []models.Entity {
	seen := make(map[string]int, len(entities))
	out := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		if idx, ok := seen[e.ID]; ok {
			out[idx] = e
			continue
		}
		seen[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func dedupeRelationships(rels []models.Relationship) []models.Relationship {
	seen := make(map[models.RelationshipKey]int, len(rels))
	out := make([]models.Relationship, 0, len(rels))
	for _, r := range rels {
		key := r.Key()
		if idx, ok := seen[key]; ok {
			out[idx] = r
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out
}
