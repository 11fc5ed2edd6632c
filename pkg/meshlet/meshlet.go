// Package meshlet splits indexed triangle meshes into GPU-sized clusters.
//
// A meshlet references at most MaxVertices unique vertices and MaxPrimitives
// triangles. Triangles inside a meshlet are stored as packed local indices
// into the meshlet's slice of the global unique-vertex array. Optional cull
// data (bounding sphere, normal cone, apex offset) is produced per meshlet.
package meshlet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// MaxLocalVertices is the largest vertex budget the 10-bit packed triangle
// encoding can address.
const MaxLocalVertices = 1 << packedIndexBits

const (
	packedIndexBits = 10
	packedIndexMask = 1<<packedIndexBits - 1
)

// Validation errors.
var (
	ErrIndexCount    = errors.New("index count is not a multiple of 3")
	ErrIndexRange    = errors.New("vertex index out of range")
	ErrMaxVertices   = errors.New("max vertices out of range")
	ErrMaxPrimitives = errors.New("max primitives must be positive")
	ErrSectionRange  = errors.New("section out of index range")
)

// PackedTriangle stores three 10-bit local vertex indices in one word.
// Bits [0,10) hold i0, [10,20) hold i1, [20,30) hold i2; the top 2 bits are unused.
type PackedTriangle uint32

// PackTriangle encodes three local indices. Each index must be below MaxLocalVertices.
func PackTriangle(i0, i1, i2 uint32) PackedTriangle {
	return PackedTriangle(i0&packedIndexMask |
		(i1&packedIndexMask)<<packedIndexBits |
		(i2&packedIndexMask)<<(2*packedIndexBits))
}

// Unpack returns the three local indices.
func (p PackedTriangle) Unpack() (i0, i1, i2 uint32) {
	v := uint32(p)
	return v & packedIndexMask,
		(v >> packedIndexBits) & packedIndexMask,
		(v >> (2 * packedIndexBits)) & packedIndexMask
}

// Meshlet describes one cluster as ranges into the global output arrays.
type Meshlet struct {
	VertexOffset    uint32 `yaml:"vertex_offset"`
	VertexCount     uint32 `yaml:"vertex_count"`
	PrimitiveOffset uint32 `yaml:"primitive_offset"`
	PrimitiveCount  uint32 `yaml:"primitive_count"`
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center math.Vec3 `yaml:"center"`
	Radius float32   `yaml:"radius"`
}

// Contains reports whether p lies inside the sphere, with tolerance eps.
func (s Sphere) Contains(p math.Vec3, eps float32) bool {
	return p.Distance(s.Center) <= s.Radius+eps
}

// Section is a contiguous range of a shared index buffer, typically one
// draw call or material group.
type Section struct {
	IndexStart uint32
	IndexCount uint32
}

// MeshletRange is the run of meshlets produced for one Section.
type MeshletRange struct {
	MeshletStart uint32 `yaml:"meshlet_start"`
	MeshletCount uint32 `yaml:"meshlet_count"`
}

// Result holds flattened meshlet output. Several builds may append into the
// same Result so that meshlets share contiguous backing storage.
type Result struct {
	Meshlets            []Meshlet
	UniqueVertexIndices []uint32
	PrimitiveIndices    []PackedTriangle
	// CullData is parallel to Meshlets when cull data generation is enabled.
	CullData []CullData
	// Ranges has one entry per input section.
	Ranges []MeshletRange
}

// MeshletVertices returns the global vertex indices referenced by meshlet m.
func (r *Result) MeshletVertices(m Meshlet) []uint32 {
	return r.UniqueVertexIndices[m.VertexOffset : m.VertexOffset+m.VertexCount]
}

// MeshletTriangles returns the packed triangles of meshlet m.
func (r *Result) MeshletTriangles(m Meshlet) []PackedTriangle {
	return r.PrimitiveIndices[m.PrimitiveOffset : m.PrimitiveOffset+m.PrimitiveCount]
}

// Triangle decodes triangle i of meshlet m back to global vertex indices.
func (r *Result) Triangle(m Meshlet, i uint32) [3]uint32 {
	verts := r.MeshletVertices(m)
	i0, i1, i2 := r.PrimitiveIndices[m.PrimitiveOffset+i].Unpack()
	return [3]uint32{verts[i0], verts[i1], verts[i2]}
}

// VertexIndexBytes returns the unique vertex indices as a little-endian
// 32-bit byte blob, the layout GPU buffers expect.
func (r *Result) VertexIndexBytes() []byte {
	out := make([]byte, 0, len(r.UniqueVertexIndices)*4)
	for _, v := range r.UniqueVertexIndices {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

// PrimitiveIndexBytes returns the packed triangles as a little-endian byte blob.
func (r *Result) PrimitiveIndexBytes() []byte {
	out := make([]byte, 0, len(r.PrimitiveIndices)*4)
	for _, p := range r.PrimitiveIndices {
		out = binary.LittleEndian.AppendUint32(out, uint32(p))
	}
	return out
}

// ValidateIndices checks that indices form whole triangles referencing
// vertices below vertexCount.
func ValidateIndices(indices []uint32, vertexCount int) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: got %d", ErrIndexCount, len(indices))
	}
	for i, idx := range indices {
		if int64(idx) >= int64(vertexCount) {
			return fmt.Errorf("%w: indices[%d] = %d, vertex count %d", ErrIndexRange, i, idx, vertexCount)
		}
	}
	return nil
}

func validateBudget(maxVertices, maxPrims uint32) error {
	if maxVertices < 3 || maxVertices > MaxLocalVertices {
		return fmt.Errorf("%w: %d (want 3..%d)", ErrMaxVertices, maxVertices, MaxLocalVertices)
	}
	if maxPrims == 0 {
		return ErrMaxPrimitives
	}
	return nil
}
