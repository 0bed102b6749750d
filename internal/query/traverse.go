package query

import (
	"context"
	"errors"
	"sort"

	"github.com/ajitpratap0/graphcortex/internal/graph"
	"github.com/ajitpratap0/graphcortex/internal/models"
)

// Traverse expands breadth-first from start up to maxHops, following edges
// in the given direction and optionally restricted to relTypes. Each
// entity and relationship appears at most once in the result no matter how
// many paths reach it.
func (e *Engine) Traverse(ctx context.Context, start string, maxHops int, dir graph.Direction, relTypes []string) (*models.Subgraph, error) {
	if _, err := e.store.GetEntity(ctx, start); err != nil {
		return nil, err
	}
	typeFilter := make(map[string]struct{}, len(relTypes))
	for _, t := range relTypes {
		typeFilter[t] = struct{}{}
	}

	frontier := []string{start}
	seenEntities := map[string]struct{}{start: {}}
	seenRels := map[models.RelationshipKey]struct{}{}
	sg := &models.Subgraph{}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rels, err := e.store.Neighbors(ctx, frontier, dir, 0)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, r := range rels {
			if len(typeFilter) > 0 {
				if _, ok := typeFilter[r.Type]; !ok {
					continue
				}
			}
			if _, ok := seenRels[r.Key()]; ok {
				continue
			}
			seenRels[r.Key()] = struct{}{}
			sg.Relationships = append(sg.Relationships, r)
			for _, id := range []string{r.SourceID, r.TargetID} {
				if _, ok := seenEntities[id]; ok {
					continue
				}
				seenEntities[id] = struct{}{}
				next = append(next, id)
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(seenEntities))
	for id := range seenEntities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entity, err := e.store.GetEntity(ctx, id)
		if err != nil {
			continue
		}
		sg.Entities = append(sg.Entities, *entity)
	}
	return sg, nil
}

// ShortestPaths finds every shortest path from source to target within
// maxHops, treating edges as undirected. No path within the bound is an
// empty result, not an error.
func (e *Engine) ShortestPaths(ctx context.Context, source, target string, maxHops int) ([]models.Path, error) {
	if _, err := e.store.GetEntity(ctx, source); err != nil {
		return nil, err
	}
	if _, err := e.store.GetEntity(ctx, target); err != nil {
		return nil, err
	}
	if source == target {
		return []models.Path{{EntityIDs: []string{source}}}, nil
	}

	// BFS layer by layer, tracking every predecessor edge that reaches a
	// node at its first (shortest) depth, then unwind all paths.
	type predEdge struct {
		from string
		rel  models.Relationship
	}
	depth := map[string]int{source: 0}
	preds := map[string][]predEdge{}
	frontier := []string{source}
	found := -1

	for hop := 1; hop <= maxHops && len(frontier) > 0 && found < 0; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rels, err := e.store.Neighbors(ctx, frontier, graph.DirectionBoth, 0)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, r := range rels {
			for _, pair := range [][2]string{{r.SourceID, r.TargetID}, {r.TargetID, r.SourceID}} {
				from, to := pair[0], pair[1]
				d, inFrontier := depth[from]
				if !inFrontier || d != hop-1 {
					continue
				}
				if existing, ok := depth[to]; ok && existing < hop {
					continue
				}
				if _, ok := depth[to]; !ok {
					depth[to] = hop
					next = append(next, to)
				}
				preds[to] = append(preds[to], predEdge{from: from, rel: r})
				if to == target {
					found = hop
				}
			}
		}
		frontier = next
	}

	if found < 0 {
		return nil, nil
	}

	var paths []models.Path
	var unwind func(node string, suffixIDs []string, suffixRels []models.Relationship)
	unwind = func(node string, suffixIDs []string, suffixRels []models.Relationship) {
		if node == source {
			ids := append([]string{source}, suffixIDs...)
			rels := append([]models.Relationship(nil), suffixRels...)
			paths = append(paths, models.Path{EntityIDs: ids, Relationships: rels})
			return
		}
		for _, p := range preds[node] {
			unwind(p.from,
				append([]string{node}, suffixIDs...),
				append([]models.Relationship{p.rel}, suffixRels...))
		}
	}
	unwind(target, nil, nil)

	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i].EntityIDs, paths[j].EntityIDs
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return paths, nil
}

// ExtractSubgraph returns the induced subgraph over everything reachable
// within depth hops from the seed entity IDs: the reached entities plus
// every relationship whose endpoints are both reached. Depth 0 induces
// over the seeds alone. Unknown seed IDs are ignored.
func (e *Engine) ExtractSubgraph(ctx context.Context, ids []string, depth int) (*models.Subgraph, error) {
	want := make(map[string]struct{}, len(ids))
	var frontier []string
	for _, id := range ids {
		if _, ok := want[id]; ok {
			continue
		}
		if _, err := e.store.GetEntity(ctx, id); err != nil {
			var notFound *graph.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return nil, err
		}
		want[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rels, err := e.store.Neighbors(ctx, frontier, graph.DirectionBoth, 0)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, r := range rels {
			for _, id := range []string{r.SourceID, r.TargetID} {
				if _, ok := want[id]; ok {
					continue
				}
				want[id] = struct{}{}
				next = append(next, id)
			}
		}
		frontier = next
	}

	sg := &models.Subgraph{}
	sorted := make([]string, 0, len(want))
	for id := range want {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	for _, id := range sorted {
		entity, err := e.store.GetEntity(ctx, id)
		if err != nil {
			continue
		}
		sg.Entities = append(sg.Entities, *entity)
	}
	rels, err := e.store.Relationships(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		if _, ok := want[r.SourceID]; !ok {
			continue
		}
		if _, ok := want[r.TargetID]; !ok {
			continue
		}
		sg.Relationships = append(sg.Relationships, r)
	}
	return sg, nil
}
