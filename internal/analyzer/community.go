package analyzer

import (
	"context"
	"math/rand/v2"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// Community is one detected community with its member entity IDs, sorted.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// CommunityResult is a full detection run: the partition plus its
// modularity score.
type CommunityResult struct {
	Communities []Community `json:"communities"`
	Modularity  float64     `json:"modularity"`
}

// Louvain detects communities by modularity maximization on the
// undirected projection. The seed fixes the randomized node order, so the
// same graph and seed give the same partition.
func (a *Analyzer) Louvain(ctx context.Context, resolution float64) (*CommunityResult, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p.nodeCount == 0 {
		return &CommunityResult{}, nil
	}
	if resolution <= 0 {
		resolution = 1
	}

	src := rand.NewPCG(a.opts.CommunitySeed, a.opts.CommunitySeed)
	reduced := community.Modularize(p.undirected, resolution, src)
	groups := reduced.Communities()

	result := &CommunityResult{
		Modularity: community.Q(p.undirected, groups, resolution),
	}
	for _, group := range groups {
		members := make([]string, 0, len(group))
		for _, node := range group {
			members = append(members, p.entityOf[node.ID()])
		}
		sort.Strings(members)
		result.Communities = append(result.Communities, Community{Members: members})
	}
	// Stable community numbering: order by first member.
	sort.Slice(result.Communities, func(i, j int) bool {
		return result.Communities[i].Members[0] < result.Communities[j].Members[0]
	})
	for i := range result.Communities {
		result.Communities[i].ID = i
	}
	return result, nil
}

// LabelPropagation detects communities by iterative label spreading.
// Nodes adopt the most common label among their neighbors, ties breaking
// toward the largest label, so the run is deterministic. Cheaper than
// Louvain on large graphs, no modularity guarantee; the final partition
// is still scored so callers can compare it against Louvain's.
func (a *Analyzer) LabelPropagation(ctx context.Context, maxIterations int) (*CommunityResult, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	n := p.nodeCount
	if n == 0 {
		return &CommunityResult{}, nil
	}
	if maxIterations <= 0 {
		maxIterations = 20
	}

	labels := make([]int64, n)
	for i := range labels {
		labels[i] = int64(i)
	}

	for iter := 0; iter < maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false
		for i := 0; i < n; i++ {
			counts := make(map[int64]int)
			it := p.undirected.From(int64(i))
			for it.Next() {
				counts[labels[it.Node().ID()]]++
			}
			if len(counts) == 0 {
				continue
			}
			best := labels[i]
			bestCount := counts[best]
			for label, count := range counts {
				if count > bestCount || (count == bestCount && label > best) {
					best, bestCount = label, count
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	byLabel := make(map[int64][]int64)
	for i := 0; i < n; i++ {
		byLabel[labels[i]] = append(byLabel[labels[i]], int64(i))
	}
	result := &CommunityResult{}
	groups := make([][]gonumgraph.Node, 0, len(byLabel))
	for _, nodes := range byLabel {
		members := make([]string, 0, len(nodes))
		group := make([]gonumgraph.Node, 0, len(nodes))
		for _, nid := range nodes {
			members = append(members, p.entityOf[nid])
			group = append(group, simple.Node(nid))
		}
		sort.Strings(members)
		result.Communities = append(result.Communities, Community{Members: members})
		groups = append(groups, group)
	}
	result.Modularity = community.Q(p.undirected, groups, 1)
	sort.Slice(result.Communities, func(i, j int) bool {
		return result.Communities[i].Members[0] < result.Communities[j].Members[0]
	})
	for i := range result.Communities {
		result.Communities[i].ID = i
	}
	return result, nil
}
