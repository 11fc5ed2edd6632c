package meshlet

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// testMesh is an indexed triangle list used by the tests.
type testMesh struct {
	positions Positions
	indices   []uint32
}

func (m testMesh) triangleCount() int { return len(m.indices) / 3 }

// unitQuad returns two counter-clockwise triangles in the XY plane facing +Z.
func unitQuad() testMesh {
	return testMesh{
		positions: Positions{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// disjointTriangles returns n triangles that share no vertices or positions.
func disjointTriangles(n int) testMesh {
	var m testMesh
	for i := 0; i < n; i++ {
		x := float32(i * 10)
		base := uint32(len(m.positions))
		m.positions = append(m.positions, math.Vec3{X: x}, math.Vec3{X: x + 1}, math.Vec3{X: x, Y: 1})
		m.indices = append(m.indices, base, base+1, base+2)
	}
	return m
}

// grid returns an n x n grid of quads in the XY plane, two triangles per quad.
func grid(n int) testMesh {
	var m testMesh
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.positions = append(m.positions, math.Vec3{X: float32(x), Y: float32(y)})
		}
	}
	row := uint32(n + 1)
	for y := uint32(0); y < uint32(n); y++ {
		for x := uint32(0); x < uint32(n); x++ {
			a := y*row + x
			b := a + 1
			c := a + row + 1
			d := a + row
			m.indices = append(m.indices, a, b, c, a, c, d)
		}
	}
	return m
}

// icosphere returns a closed unit sphere built by subdividing an icosahedron.
func icosphere(subdivisions int) testMesh {
	t := float32((1 + gomath.Sqrt(5)) / 2)
	m := testMesh{
		positions: Positions{
			{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
			{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
			{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
		},
		indices: []uint32{
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		},
	}
	for i := range m.positions {
		m.positions[i] = m.positions[i].Normalize()
	}

	for s := 0; s < subdivisions; s++ {
		mid := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if idx, ok := mid[key]; ok {
				return idx
			}
			p := m.positions[a].Add(m.positions[b]).Normalize()
			m.positions = append(m.positions, p)
			idx := uint32(len(m.positions) - 1)
			mid[key] = idx
			return idx
		}

		var next []uint32
		for f := 0; f < len(m.indices); f += 3 {
			a, b, c := m.indices[f], m.indices[f+1], m.indices[f+2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next,
				a, ab, ca,
				b, bc, ab,
				c, ca, bc,
				ab, bc, ca,
			)
		}
		m.indices = next
	}
	return m
}

// unweld gives every triangle corner its own vertex, keeping positions.
func unweld(m testMesh) testMesh {
	var out testMesh
	for i, idx := range m.indices {
		out.positions = append(out.positions, m.positions[idx])
		out.indices = append(out.indices, uint32(i))
	}
	return out
}

// checkResult verifies the partition, capacity and decode properties of r.
func checkResult(t *testing.T, r *Result, m testMesh, opts Options) {
	t.Helper()

	want := make(map[[3]uint32]int)
	for f := 0; f < len(m.indices); f += 3 {
		want[[3]uint32{m.indices[f], m.indices[f+1], m.indices[f+2]}]++
	}

	var nextVertex, nextPrim uint32
	for mi, ml := range r.Meshlets {
		if ml.VertexCount > opts.MaxVertices {
			t.Errorf("meshlet %d: %d vertices > %d", mi, ml.VertexCount, opts.MaxVertices)
		}
		if ml.PrimitiveCount > opts.MaxPrimitives {
			t.Errorf("meshlet %d: %d primitives > %d", mi, ml.PrimitiveCount, opts.MaxPrimitives)
		}
		if ml.PrimitiveCount == 0 {
			t.Errorf("meshlet %d is empty", mi)
		}
		if ml.VertexOffset != nextVertex || ml.PrimitiveOffset != nextPrim {
			t.Errorf("meshlet %d: offsets (%d,%d), want (%d,%d)", mi, ml.VertexOffset, ml.PrimitiveOffset, nextVertex, nextPrim)
		}
		nextVertex += ml.VertexCount
		nextPrim += ml.PrimitiveCount

		seen := make(map[uint32]bool)
		for _, v := range r.MeshletVertices(ml) {
			if seen[v] {
				t.Errorf("meshlet %d: vertex %d listed twice", mi, v)
			}
			seen[v] = true
		}

		for i := uint32(0); i < ml.PrimitiveCount; i++ {
			i0, i1, i2 := r.MeshletTriangles(ml)[i].Unpack()
			if i0 >= ml.VertexCount || i1 >= ml.VertexCount || i2 >= ml.VertexCount {
				t.Errorf("meshlet %d tri %d: local index out of range", mi, i)
				continue
			}
			tri := r.Triangle(ml, i)
			if want[tri] == 0 {
				t.Errorf("meshlet %d tri %d: %v is not an input triangle or is duplicated", mi, i, tri)
				continue
			}
			want[tri]--
		}
	}

	if int(nextVertex) != len(r.UniqueVertexIndices) || int(nextPrim) != len(r.PrimitiveIndices) {
		t.Errorf("ranges cover (%d,%d), arrays are (%d,%d)", nextVertex, nextPrim, len(r.UniqueVertexIndices), len(r.PrimitiveIndices))
	}
	for tri, n := range want {
		if n != 0 {
			t.Errorf("triangle %v missing %d time(s)", tri, n)
		}
	}
}

func testOptions(maxV, maxP uint32) Options {
	opts := DefaultOptions()
	opts.MaxVertices = maxV
	opts.MaxPrimitives = maxP
	return opts
}
