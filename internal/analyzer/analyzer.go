package analyzer

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"

	"github.com/ajitpratap0/graphcortex/internal/graph"
)

// Options tunes the analytics algorithms.
type Options struct {
	PageRankDamping  float64
	PageRankMaxIter  int
	PageRankTol      float64
	MaxDiameterNodes int
	CommunitySeed    uint64
}

func DefaultOptions() Options {
	return Options{
		PageRankDamping:  0.85,
		PageRankMaxIter:  100,
		PageRankTol:      1e-6,
		MaxDiameterNodes: 1000,
		CommunitySeed:    1,
	}
}

// NodeScore is one entity with a computed score, ranked descending.
type NodeScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Analyzer computes graph analytics over projections.
type Analyzer struct {
	projections *ProjectionManager
	opts        Options
	logger      *slog.Logger
}

func New(projections *ProjectionManager, opts Options, logger *slog.Logger) *Analyzer {
	if opts.PageRankDamping <= 0 || opts.PageRankDamping >= 1 {
		opts.PageRankDamping = 0.85
	}
	if opts.PageRankMaxIter <= 0 {
		opts.PageRankMaxIter = 100
	}
	if opts.PageRankTol <= 0 {
		opts.PageRankTol = 1e-6
	}
	return &Analyzer{projections: projections, opts: opts, logger: logger}
}

// Invalidate marks the underlying projection stale after graph writes.
func (a *Analyzer) Invalidate() { a.projections.Invalidate() }

// PageRank runs power iteration with the configured damping over the
// directed projection. Scores sum to 1; dangling nodes redistribute
// uniformly. Iteration stops at convergence or the iteration cap,
// whichever comes first.
func (a *Analyzer) PageRank(ctx context.Context, topK int) ([]NodeScore, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	n := p.nodeCount
	if n == 0 {
		return nil, nil
	}

	d := a.opts.PageRankDamping
	ranks := make([]float64, n)
	next := make([]float64, n)
	for i := range ranks {
		ranks[i] = 1.0 / float64(n)
	}

	outDeg := make([]int, n)
	for i := 0; i < n; i++ {
		outDeg[i] = p.directed.From(int64(i)).Len()
	}

	for iter := 0; iter < a.opts.PageRankMaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var dangling float64
		for i := 0; i < n; i++ {
			next[i] = (1 - d) / float64(n)
			if outDeg[i] == 0 {
				dangling += ranks[i]
			}
		}
		for i := 0; i < n; i++ {
			if outDeg[i] == 0 {
				continue
			}
			share := d * ranks[i] / float64(outDeg[i])
			to := p.directed.From(int64(i))
			for to.Next() {
				next[to.Node().ID()] += share
			}
		}
		spread := d * dangling / float64(n)
		var delta float64
		for i := 0; i < n; i++ {
			next[i] += spread
			delta += math.Abs(next[i] - ranks[i])
		}
		ranks, next = next, ranks
		if delta < a.opts.PageRankTol {
			break
		}
	}

	return a.rank(p, ranks, topK), nil
}

// Betweenness computes betweenness centrality on the undirected
// projection.
func (a *Analyzer) Betweenness(ctx context.Context, topK int) ([]NodeScore, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p.nodeCount == 0 {
		return nil, nil
	}
	scores := network.Betweenness(p.undirected)
	return a.rankMap(p, scores, topK), nil
}

// Closeness computes closeness centrality on the undirected projection.
// Unreachable node pairs contribute nothing, so disconnected graphs are
// safe.
func (a *Analyzer) Closeness(ctx context.Context, topK int) ([]NodeScore, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p.nodeCount == 0 {
		return nil, nil
	}
	allPaths := path.DijkstraAllPaths(p.undirected)
	scores := network.Closeness(p.undirected, allPaths)
	for id, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			scores[id] = 0
		}
	}
	return a.rankMap(p, scores, topK), nil
}

// Degree computes degree centrality (undirected degree over n-1).
func (a *Analyzer) Degree(ctx context.Context, topK int) ([]NodeScore, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	n := p.nodeCount
	if n == 0 {
		return nil, nil
	}
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		if n > 1 {
			scores[i] = float64(p.undirected.From(int64(i)).Len()) / float64(n-1)
		}
	}
	return a.rank(p, scores, topK), nil
}

// Importance combines PageRank, betweenness, and degree into one ranking.
// Each component is normalized to [0,1] before averaging so no single
// scale dominates.
func (a *Analyzer) Importance(ctx context.Context, topK int) ([]NodeScore, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	if p.nodeCount == 0 {
		return nil, nil
	}
	pr, err := a.PageRank(ctx, 0)
	if err != nil {
		return nil, err
	}
	bw, err := a.Betweenness(ctx, 0)
	if err != nil {
		return nil, err
	}
	dg, err := a.Degree(ctx, 0)
	if err != nil {
		return nil, err
	}

	combined := make(map[string]float64, p.nodeCount)
	for _, component := range [][]NodeScore{normalizeScores(pr), normalizeScores(bw), normalizeScores(dg)} {
		for _, s := range component {
			combined[s.ID] += s.Score / 3
		}
	}
	out := make([]NodeScore, 0, len(combined))
	for id, s := range combined {
		out = append(out, NodeScore{ID: id, Score: s})
	}
	sortScores(out)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// ImportanceProfile bundles every per-node measure for a single entity.
type ImportanceProfile struct {
	ID          string  `json:"id"`
	PageRank    float64 `json:"pagerank"`
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	Degree      int     `json:"degree"`
	Clustering  float64 `json:"clustering"`
}

// NodeImportance reports PageRank, betweenness, closeness, raw degree,
// and the local clustering coefficient for one entity.
func (a *Analyzer) NodeImportance(ctx context.Context, id string) (*ImportanceProfile, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	nid, ok := p.idOf[id]
	if !ok {
		return nil, &graph.NotFoundError{ID: id}
	}

	profile := &ImportanceProfile{
		ID:         id,
		Degree:     p.undirected.From(nid).Len(),
		Clustering: localClustering(p, nid),
	}

	pr, err := a.PageRank(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, s := range pr {
		if s.ID == id {
			profile.PageRank = s.Score
			break
		}
	}

	profile.Betweenness = network.Betweenness(p.undirected)[nid]
	closeness := network.Closeness(p.undirected, path.DijkstraAllPaths(p.undirected))[nid]
	if !math.IsNaN(closeness) && !math.IsInf(closeness, 0) {
		profile.Closeness = closeness
	}
	return profile, nil
}

// BridgeNode is an articulation point together with the IDs of the
// communities its neighbors belong to.
type BridgeNode struct {
	ID          string `json:"id"`
	Communities []int  `json:"communities"`
}

// Bridges finds articulation points of the undirected projection, nodes
// whose removal disconnects some component, and reports which detected
// communities each one connects.
func (a *Analyzer) Bridges(ctx context.Context) ([]BridgeNode, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	n := p.nodeCount
	if n == 0 {
		return nil, nil
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isCut := make([]bool, n)
	timer := 0

	var dfs func(u, parent int64)
	dfs = func(u, parent int64) {
		visited[u] = true
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0
		it := p.undirected.From(u)
		for it.Next() {
			v := it.Node().ID()
			if v == parent {
				continue
			}
			if visited[v] {
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
				continue
			}
			children++
			dfs(v, u)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if parent != -1 && low[v] >= disc[u] {
				isCut[u] = true
			}
		}
		if parent == -1 && children > 1 {
			isCut[u] = true
		}
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !visited[i] {
			dfs(int64(i), -1)
		}
	}

	detected, err := a.Louvain(ctx, 1)
	if err != nil {
		return nil, err
	}
	communityOf := make(map[string]int, n)
	for _, c := range detected.Communities {
		for _, m := range c.Members {
			communityOf[m] = c.ID
		}
	}

	var out []BridgeNode
	for i := 0; i < n; i++ {
		if !isCut[i] {
			continue
		}
		seen := make(map[int]struct{})
		it := p.undirected.From(int64(i))
		for it.Next() {
			seen[communityOf[p.entityOf[it.Node().ID()]]] = struct{}{}
		}
		communities := make([]int, 0, len(seen))
		for c := range seen {
			communities = append(communities, c)
		}
		sort.Ints(communities)
		out = append(out, BridgeNode{ID: p.entityOf[int64(i)], Communities: communities})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *Analyzer) rank(p *Projection, scores []float64, topK int) []NodeScore {
	out := make([]NodeScore, 0, len(scores))
	for i, s := range scores {
		out = append(out, NodeScore{ID: p.entityOf[int64(i)], Score: s})
	}
	sortScores(out)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (a *Analyzer) rankMap(p *Projection, scores map[int64]float64, topK int) []NodeScore {
	out := make([]NodeScore, 0, p.nodeCount)
	for i := 0; i < p.nodeCount; i++ {
		out = append(out, NodeScore{ID: p.entityOf[int64(i)], Score: scores[int64(i)]})
	}
	sortScores(out)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func sortScores(scores []NodeScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})
}

func normalizeScores(scores []NodeScore) []NodeScore {
	if len(scores) == 0 {
		return scores
	}
	minS, maxS := scores[0].Score, scores[0].Score
	for _, s := range scores[1:] {
		if s.Score < minS {
			minS = s.Score
		}
		if s.Score > maxS {
			maxS = s.Score
		}
	}
	out := make([]NodeScore, len(scores))
	for i, s := range scores {
		if maxS == minS {
			out[i] = NodeScore{ID: s.ID, Score: 1}
			continue
		}
		out[i] = NodeScore{ID: s.ID, Score: (s.Score - minS) / (maxS - minS)}
	}
	return out
}
