package meshlet

import (
	gomath "math"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// NoNeighbor marks an edge without an adjacent triangle.
const NoNeighbor = ^uint32(0)

// Adjacency stores, for every triangle t and edge e, the triangle across
// edge e at index 3*t+e. Edge e runs from corner e to corner (e+1)%3.
type Adjacency []uint32

// Neighbor returns the triangle sharing edge e of triangle tri.
func (a Adjacency) Neighbor(tri uint32, edge int) (uint32, bool) {
	n := a[tri*3+uint32(edge)]
	return n, n != NoNeighbor
}

// BoundaryEdges counts edges without a neighbor.
func (a Adjacency) BoundaryEdges() int {
	count := 0
	for _, n := range a {
		if n == NoNeighbor {
			count++
		}
	}
	return count
}

// BuildAdjacency computes triangle adjacency for indices. Vertices that share
// an exact position are treated as one point, so seams from duplicated
// attributes (UVs, normals) do not break adjacency.
func BuildAdjacency(indices []uint32, src PositionSource) (Adjacency, error) {
	if err := ValidateIndices(indices, src.Len()); err != nil {
		return nil, err
	}
	return buildAdjacency(indices, src, pointReps(src)), nil
}

// edgeEntry is one directed edge i0->i1 of a face, with i2 the opposite corner.
type edgeEntry struct {
	i0, i1, i2 uint32
	face       uint32
	edge       uint32
	next       int32
}

// edgeTable is a chained hash table of edges backed by a single arena.
type edgeTable struct {
	buckets []int32
	entries []edgeEntry
}

func newEdgeTable(triCount int) *edgeTable {
	size := max(triCount, 1)
	t := &edgeTable{
		buckets: make([]int32, size),
		entries: make([]edgeEntry, 0, triCount*3),
	}
	for i := range t.buckets {
		t.buckets[i] = -1
	}
	return t
}

func (t *edgeTable) key(i0 uint32) int {
	return int(i0 % uint32(len(t.buckets)))
}

func (t *edgeTable) insert(e edgeEntry) {
	k := t.key(e.i0)
	e.next = t.buckets[k]
	t.entries = append(t.entries, e)
	t.buckets[k] = int32(len(t.entries) - 1)
}

// remove unlinks entry idx from its bucket.
func (t *edgeTable) remove(idx int32) {
	k := t.key(t.entries[idx].i0)
	if t.buckets[k] == idx {
		t.buckets[k] = t.entries[idx].next
		return
	}
	for cur := t.buckets[k]; cur >= 0; cur = t.entries[cur].next {
		if t.entries[cur].next == idx {
			t.entries[cur].next = t.entries[idx].next
			return
		}
	}
}

// pointReps maps every vertex to the first vertex with an identical position.
func pointReps(src PositionSource) []uint32 {
	n := src.Len()
	reps := make([]uint32, n)
	seen := make(map[[3]uint32]uint32, n)
	for i := 0; i < n; i++ {
		p := src.Position(uint32(i))
		key := [3]uint32{positionBits(p.X), positionBits(p.Y), positionBits(p.Z)}
		if first, ok := seen[key]; ok {
			reps[i] = first
			continue
		}
		seen[key] = uint32(i)
		reps[i] = uint32(i)
	}
	return reps
}

// positionBits keys a coordinate by its exact bits, with -0 folded into +0.
func positionBits(v float32) uint32 {
	if v == 0 {
		return 0
	}
	return gomath.Float32bits(v)
}

func buildAdjacency(indices []uint32, src PositionSource, reps []uint32) Adjacency {
	triCount := len(indices) / 3

	corner := func(face, c uint32) uint32 {
		return reps[indices[face*3+c%3]]
	}
	normalOf := func(a, b, c uint32) math.Vec3 {
		n, _ := faceNormal(src.Position(a), src.Position(b), src.Position(c))
		return n
	}

	table := newEdgeTable(triCount)
	for f := uint32(0); f < uint32(triCount); f++ {
		for e := uint32(0); e < 3; e++ {
			table.insert(edgeEntry{
				i0:   corner(f, e),
				i1:   corner(f, e+1),
				i2:   corner(f, e+2),
				face: f,
				edge: e,
			})
		}
	}

	adj := make(Adjacency, triCount*3)
	for i := range adj {
		adj[i] = NoNeighbor
	}

	for f := uint32(0); f < uint32(triCount); f++ {
		for e := uint32(0); e < 3; e++ {
			if adj[f*3+e] != NoNeighbor {
				continue
			}

			// Look for the same edge running the other way
			i0 := corner(f, e+1)
			i1 := corner(f, e)
			i2 := corner(f, e+2)
			n0 := normalOf(i1, i0, i2)

			found := int32(-1)
			var bestDot float32
			for cur := table.buckets[table.key(i0)]; cur >= 0; cur = table.entries[cur].next {
				c := &table.entries[cur]
				if c.i0 != i0 || c.i1 != i1 || c.face == f {
					continue
				}
				d := n0.Dot(normalOf(c.i0, c.i1, c.i2))
				if found < 0 || d > bestDot || (d == bestDot && c.face < table.entries[found].face) {
					found = cur
					bestDot = d
				}
			}
			if found < 0 {
				continue
			}

			match := table.entries[found]
			table.remove(found)
			adj[f*3+e] = match.face

			// Retire this face's own directed edge so nothing else pairs with it
			for cur := table.buckets[table.key(i1)]; cur >= 0; cur = table.entries[cur].next {
				c := &table.entries[cur]
				if c.face == f && c.edge == e {
					table.remove(cur)
					break
				}
			}

			if linked(adj, f, e, match.face) || linked(adj, match.face, match.edge, f) {
				adj[f*3+e] = NoNeighbor
				continue
			}
			adj[match.face*3+match.edge] = f
		}
	}

	return adj
}

// linked reports whether tri already lists other on an edge besides skip.
func linked(adj Adjacency, tri, skip, other uint32) bool {
	for e := uint32(0); e < 3; e++ {
		if e != skip && adj[tri*3+e] == other {
			return true
		}
	}
	return false
}
