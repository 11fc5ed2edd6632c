package meshlet

import (
	"encoding/binary"
	gomath "math"

	"golang.org/x/exp/constraints"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// PositionSource gives read-only access to vertex positions.
// Implementations must be safe for concurrent reads.
type PositionSource interface {
	// Len returns the number of vertices.
	Len() int
	// Position returns the position of vertex i.
	Position(i uint32) math.Vec3
}

var (
	_ PositionSource = Positions(nil)
	_ PositionSource = PositionFunc{}
	_ PositionSource = StridedPositions{}
)

// Positions is a PositionSource over a plain slice.
type Positions []math.Vec3

// Len implements PositionSource.
func (p Positions) Len() int { return len(p) }

// Position implements PositionSource.
func (p Positions) Position(i uint32) math.Vec3 { return p[i] }

// PositionFunc adapts a function to PositionSource.
type PositionFunc struct {
	Count int
	Get   func(i uint32) math.Vec3
}

// Len implements PositionSource.
func (f PositionFunc) Len() int { return f.Count }

// Position implements PositionSource.
func (f PositionFunc) Position(i uint32) math.Vec3 { return f.Get(i) }

// StridedPositions reads little-endian float32x3 positions out of an
// interleaved vertex buffer.
type StridedPositions struct {
	Data   []byte
	Stride int
	Offset int
	Count  int
}

// NewStridedPositions wraps an interleaved vertex buffer. The vertex count is
// derived from the buffer length.
func NewStridedPositions(data []byte, stride, offset int) StridedPositions {
	count := 0
	if stride > 0 && len(data) >= offset+12 {
		count = (len(data)-offset-12)/stride + 1
	}
	return StridedPositions{Data: data, Stride: stride, Offset: offset, Count: count}
}

// Len implements PositionSource.
func (s StridedPositions) Len() int { return s.Count }

// Position implements PositionSource.
func (s StridedPositions) Position(i uint32) math.Vec3 {
	base := int(i)*s.Stride + s.Offset
	b := s.Data[base : base+12]
	return math.Vec3{
		X: gomath.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: gomath.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: gomath.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// WidenIndices converts a narrow index buffer (8 or 16 bit) to 32-bit indices.
func WidenIndices[T constraints.Unsigned](src []T) []uint32 {
	out := make([]uint32, len(src))
	for i, v := range src {
		out[i] = uint32(v)
	}
	return out
}

// triangleVerts returns the three vertex indices of triangle tri.
func triangleVerts(indices []uint32, tri uint32) [3]uint32 {
	base := tri * 3
	return [3]uint32{indices[base], indices[base+1], indices[base+2]}
}

func trianglePositions(src PositionSource, v [3]uint32) [3]math.Vec3 {
	return [3]math.Vec3{src.Position(v[0]), src.Position(v[1]), src.Position(v[2])}
}

// degenerateAreaEpsilon is the squared cross-product length below which a
// triangle has no usable normal.
const degenerateAreaEpsilon = 1e-24

// faceNormal returns the unit normal of triangle (a, b, c) in its winding order,
// or the zero vector and false when the triangle has no area.
func faceNormal(a, b, c math.Vec3) (math.Vec3, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	lsq := n.LengthSq()
	if lsq <= degenerateAreaEpsilon || !n.IsFinite() {
		return math.Vec3{}, false
	}
	return n.Scale(float32(1 / gomath.Sqrt(float64(lsq)))), true
}
