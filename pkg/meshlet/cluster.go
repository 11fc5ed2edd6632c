package meshlet

import (
	gomath "math"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// Candidate scoring weights. Lower total cost is better.
const (
	reuseWeight       = 1.0 / 3.0
	localityWeight    = 1.0 / 3.0
	orientationWeight = 1.0 / 3.0
)

// minRadiusSq keeps the locality score finite while the cluster sphere has no extent.
const minRadiusSq = 1e-12

// WorkingMeshlet is a cluster under construction.
type WorkingMeshlet struct {
	// UniqueVertices holds global vertex indices; position is the local index.
	UniqueVertices []uint32
	Triangles      []PackedTriangle

	local map[uint32]uint32
}

func newWorkingMeshlet() *WorkingMeshlet {
	return &WorkingMeshlet{local: make(map[uint32]uint32)}
}

// reuse counts corners of tri already present in the meshlet.
func (m *WorkingMeshlet) reuse(tri [3]uint32) int {
	count := 0
	for _, v := range tri {
		if _, ok := m.local[v]; ok {
			count++
		}
	}
	return count
}

// tryAdd appends tri if it fits the budgets and reports whether it did.
func (m *WorkingMeshlet) tryAdd(tri [3]uint32, maxVertices, maxPrims uint32) bool {
	if uint32(len(m.UniqueVertices)) == maxVertices || uint32(len(m.Triangles)) == maxPrims {
		return false
	}

	newCount := 0
	for j, v := range tri {
		if _, ok := m.local[v]; ok {
			continue
		}
		// Repeated corners of a degenerate triangle count once
		if (j > 0 && tri[0] == v) || (j > 1 && tri[1] == v) {
			continue
		}
		newCount++
	}
	if uint32(len(m.UniqueVertices)+newCount) > maxVertices {
		return false
	}

	var locals [3]uint32
	for j, v := range tri {
		idx, ok := m.local[v]
		if !ok {
			idx = uint32(len(m.UniqueVertices))
			m.local[v] = idx
			m.UniqueVertices = append(m.UniqueVertices, v)
		}
		locals[j] = idx
	}
	m.Triangles = append(m.Triangles, PackTriangle(locals[0], locals[1], locals[2]))
	return true
}

func (m *WorkingMeshlet) full(maxVertices, maxPrims uint32) bool {
	return uint32(len(m.UniqueVertices)) == maxVertices || uint32(len(m.Triangles)) == maxPrims
}

type candidate struct {
	tri  uint32
	cost float32
}

// clusterer holds the state of the greedy growth loop for one index buffer.
type clusterer struct {
	indices     []uint32
	adj         Adjacency
	src         PositionSource
	maxVertices uint32
	maxPrims    uint32

	visited    []bool
	pending    []uint32 // generation stamp; equal to gen when queued
	gen        uint32
	candidates []candidate

	positions []math.Vec3
	normals   []math.Vec3
	sphere    Sphere
	coneAxis  math.Vec3

	cur *WorkingMeshlet
	out []*WorkingMeshlet
}

// Cluster greedily partitions the triangles of indices into meshlets. Input
// is assumed valid; Build performs validation.
func Cluster(indices []uint32, adj Adjacency, src PositionSource, maxVertices, maxPrims uint32) []*WorkingMeshlet {
	triCount := len(indices) / 3
	if triCount == 0 {
		return nil
	}

	c := &clusterer{
		indices:     indices,
		adj:         adj,
		src:         src,
		maxVertices: maxVertices,
		maxPrims:    maxPrims,
		visited:     make([]bool, triCount),
		pending:     make([]uint32, triCount),
		gen:         1,
		cur:         newWorkingMeshlet(),
	}
	c.run()
	return c.out
}

func (c *clusterer) run() {
	triCount := uint32(len(c.visited))
	seed := uint32(0)
	c.push(seed, 0)

	for len(c.candidates) > 0 {
		cand := c.popMin()
		tri := triangleVerts(c.indices, cand.tri)

		if c.cur.tryAdd(tri, c.maxVertices, c.maxPrims) {
			c.visited[cand.tri] = true
			c.pending[cand.tri] = 0

			c.accumulate(tri)
			c.enqueueNeighbors(cand.tri)
			c.rescore()

			if c.cur.full(c.maxVertices, c.maxPrims) {
				carry, ok := c.best()
				c.finalize()
				if ok {
					c.push(carry.tri, carry.cost)
				}
			}
		} else if len(c.candidates) == 0 {
			c.finalize()
		}

		// Out of candidates: continue from the lowest unvisited triangle
		if len(c.candidates) == 0 {
			for seed < triCount && c.visited[seed] {
				seed++
			}
			if seed == triCount {
				break
			}
			c.push(seed, 0)
		}
	}

	if len(c.cur.Triangles) > 0 {
		c.out = append(c.out, c.cur)
	}
}

func (c *clusterer) push(tri uint32, cost float32) {
	c.candidates = append(c.candidates, candidate{tri: tri, cost: cost})
	c.pending[tri] = c.gen
}

// best returns the cheapest candidate, ties going to the lower triangle id.
func (c *clusterer) best() (candidate, bool) {
	i := c.bestIndex()
	if i < 0 {
		return candidate{}, false
	}
	return c.candidates[i], true
}

func (c *clusterer) bestIndex() int {
	best := -1
	for i, cand := range c.candidates {
		if best < 0 {
			best = i
			continue
		}
		b := c.candidates[best]
		if cand.cost < b.cost || (cand.cost == b.cost && cand.tri < b.tri) {
			best = i
		}
	}
	return best
}

func (c *clusterer) popMin() candidate {
	i := c.bestIndex()
	cand := c.candidates[i]
	last := len(c.candidates) - 1
	c.candidates[i] = c.candidates[last]
	c.candidates = c.candidates[:last]
	return cand
}

// finalize closes the current meshlet and resets per-meshlet state.
// Rejected triangles become eligible again for the next meshlet.
func (c *clusterer) finalize() {
	c.out = append(c.out, c.cur)
	c.cur = newWorkingMeshlet()
	c.candidates = c.candidates[:0]
	c.gen++
	c.positions = c.positions[:0]
	c.normals = c.normals[:0]
	c.sphere = Sphere{}
	c.coneAxis = math.Vec3{}
}

// accumulate folds a newly added triangle into the running bounds.
func (c *clusterer) accumulate(tri [3]uint32) {
	p := trianglePositions(c.src, tri)
	c.positions = append(c.positions, p[0], p[1], p[2])
	if n, ok := faceNormal(p[0], p[1], p[2]); ok {
		c.normals = append(c.normals, n)
	}

	c.sphere = MinimumBoundingSphere(c.positions)
	c.coneAxis = MinimumBoundingSphere(c.normals).Center.Normalize()
}

func (c *clusterer) enqueueNeighbors(tri uint32) {
	for e := 0; e < 3; e++ {
		n, ok := c.adj.Neighbor(tri, e)
		if !ok || c.visited[n] || c.pending[n] == c.gen {
			continue
		}
		c.push(n, float32(gomath.Inf(1)))
	}
}

func (c *clusterer) rescore() {
	for i := range c.candidates {
		c.candidates[i].cost = c.score(c.candidates[i].tri)
	}
}

// score rates how well tri extends the current meshlet: vertex reuse,
// distance from the cluster sphere and alignment with the cone axis.
func (c *clusterer) score(triID uint32) float32 {
	tri := triangleVerts(c.indices, triID)
	p := trianglePositions(c.src, tri)

	reuseCost := 1 - float32(c.cur.reuse(tri))/3

	var maxSq float32
	for _, v := range p {
		maxSq = max(maxSq, v.DistanceSq(c.sphere.Center))
	}
	r2 := max(c.sphere.Radius*c.sphere.Radius, minRadiusSq)
	localityCost := float32(gomath.Log2(float64(maxSq/r2 + 1)))

	n, _ := faceNormal(p[0], p[1], p[2])
	orientationCost := (1 - n.Dot(c.coneAxis)) / 2

	return reuseWeight*reuseCost + localityWeight*localityCost + orientationWeight*orientationCost
}
