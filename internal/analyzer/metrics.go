package analyzer

import (
	"context"

	"gonum.org/v1/gonum/graph/topo"
)

// GraphMetrics summarizes whole-graph structure. Diameter is nil when the
// graph is disconnected or larger than the configured node cap, where the
// all-pairs computation would be wrong or too expensive.
type GraphMetrics struct {
	NodeCount             int     `json:"node_count"`
	EdgeCount             int     `json:"edge_count"`
	Density               float64 `json:"density"`
	AverageDegree         float64 `json:"average_degree"`
	ClusteringCoefficient float64 `json:"clustering_coefficient"`
	ConnectedComponents   int     `json:"connected_components"`
	LargestComponent      int     `json:"largest_component"`
	Diameter              *int    `json:"diameter,omitempty"`
}

// Metrics computes whole-graph metrics over the undirected projection.
func (a *Analyzer) Metrics(ctx context.Context) (*GraphMetrics, error) {
	p, err := a.projections.Get(ctx)
	if err != nil {
		return nil, err
	}
	n := p.nodeCount
	out := &GraphMetrics{NodeCount: n, EdgeCount: p.edgeCount}
	if n == 0 {
		return out, nil
	}

	out.AverageDegree = 2 * float64(p.edgeCount) / float64(n)
	if n > 1 {
		out.Density = 2 * float64(p.edgeCount) / (float64(n) * float64(n-1))
	}

	components := topo.ConnectedComponents(p.undirected)
	out.ConnectedComponents = len(components)
	for _, c := range components {
		if len(c) > out.LargestComponent {
			out.LargestComponent = len(c)
		}
	}

	out.ClusteringCoefficient = a.clustering(p)

	if out.ConnectedComponents == 1 && n <= a.opts.MaxDiameterNodes {
		d, err := a.diameter(ctx, p)
		if err != nil {
			return nil, err
		}
		out.Diameter = &d
	}
	return out, nil
}

// clustering is the average local clustering coefficient over all nodes.
func (a *Analyzer) clustering(p *Projection) float64 {
	n := p.nodeCount
	var total float64
	for i := 0; i < n; i++ {
		total += localClustering(p, int64(i))
	}
	return total / float64(n)
}

// localClustering is the fraction of a node's neighbor pairs that are
// themselves connected. Nodes with fewer than two neighbors score 0.
func localClustering(p *Projection, node int64) float64 {
	var neighbors []int64
	it := p.undirected.From(node)
	for it.Next() {
		neighbors = append(neighbors, it.Node().ID())
	}
	k := len(neighbors)
	if k < 2 {
		return 0
	}
	links := 0
	for x := 0; x < k; x++ {
		for y := x + 1; y < k; y++ {
			if p.undirected.Edge(neighbors[x], neighbors[y]) != nil {
				links++
			}
		}
	}
	return 2 * float64(links) / (float64(k) * float64(k-1))
}

// diameter runs an unweighted BFS from every node and takes the largest
// eccentricity. Only called on connected graphs under the node cap.
func (a *Analyzer) diameter(ctx context.Context, p *Projection) (int, error) {
	n := p.nodeCount
	maxDist := 0
	dist := make([]int, n)
	for start := 0; start < n; start++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for i := range dist {
			dist[i] = -1
		}
		dist[start] = 0
		queue := []int64{int64(start)}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			it := p.undirected.From(u)
			for it.Next() {
				v := it.Node().ID()
				if dist[v] >= 0 {
					continue
				}
				dist[v] = dist[u] + 1
				if dist[v] > maxDist {
					maxDist = dist[v]
				}
				queue = append(queue, v)
			}
		}
	}
	return maxDist, nil
}
