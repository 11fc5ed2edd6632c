// Package gltfmesh loads triangle geometry out of glTF 2.0 files.
//
// Every triangle primitive instantiated by the scene is appended to one
// shared vertex array and one shared index buffer. Each primitive becomes
// one meshlet.Section so the builder can cluster them independently.
package gltfmesh

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
	"github.com/Faultbox/midgard-meshlet/pkg/meshlet"
)

var (
	// ErrNoPositions is returned for a primitive without a POSITION attribute.
	ErrNoPositions = errors.New("primitive has no POSITION attribute")
	// ErrUnsupportedMode is returned for primitives that are not triangle lists.
	ErrUnsupportedMode = errors.New("unsupported primitive mode")
	// ErrNoGeometry is returned when a document holds no primitives at all.
	ErrNoGeometry = errors.New("document has no mesh primitives")
	// ErrInvalidReference is returned for scene, node, mesh or accessor
	// indices that point outside the document.
	ErrInvalidReference = errors.New("invalid reference")
)

// maxNodeDepth bounds node recursion so cyclic hierarchies fail instead of
// overflowing the stack.
const maxNodeDepth = 64

// Primitive describes where one glTF primitive landed in the merged buffers.
type Primitive struct {
	Node      string `yaml:"node,omitempty"`
	Mesh      string `yaml:"mesh"`
	MeshIndex int    `yaml:"mesh_index"`
	Index     int    `yaml:"primitive"`
	Vertices  int    `yaml:"vertices"`
	Triangles int    `yaml:"triangles"`
}

// Mesh is the merged geometry of a glTF document.
type Mesh struct {
	Positions  meshlet.Positions
	Indices    []uint32
	Sections   []meshlet.Section
	Primitives []Primitive
}

// TriangleCount returns the number of triangles across all sections.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Bounds returns the axis-aligned bounding box of all positions.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.Positions) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	lo, hi = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi
}

// Load opens a .gltf or .glb file and merges its triangle primitives.
func Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return FromDocument(doc)
}

// FromDocument merges the triangle primitives of an already decoded document.
//
// Meshes are instantiated through the node hierarchy of the default scene
// with positions moved to world space. A document without any scene node
// referencing a mesh falls back to its raw mesh list.
func FromDocument(doc *gltf.Document) (*Mesh, error) {
	m := &Mesh{}

	roots, err := sceneRoots(doc)
	if err != nil {
		return nil, err
	}
	for _, ni := range roots {
		if err := m.appendNode(doc, ni, math.Identity(), 0); err != nil {
			return nil, err
		}
	}

	if len(m.Sections) == 0 {
		for mi := range doc.Meshes {
			if err := m.appendMesh(doc, mi, "", math.Identity()); err != nil {
				return nil, err
			}
		}
	}

	if len(m.Sections) == 0 {
		return nil, ErrNoGeometry
	}
	return m, nil
}

// sceneRoots returns the root nodes of the default scene, or of the first
// scene when none is marked default.
func sceneRoots(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) == 0 {
		return nil, nil
	}
	si := 0
	if doc.Scene != nil {
		si = int(*doc.Scene)
	}
	if si >= len(doc.Scenes) {
		return nil, fmt.Errorf("%w: scene %d", ErrInvalidReference, si)
	}

	roots := make([]int, 0, len(doc.Scenes[si].Nodes))
	for _, ni := range doc.Scenes[si].Nodes {
		roots = append(roots, int(ni))
	}
	return roots, nil
}

func (m *Mesh) appendNode(doc *gltf.Document, ni int, parent math.Mat4, depth int) error {
	if ni >= len(doc.Nodes) {
		return fmt.Errorf("%w: node %d", ErrInvalidReference, ni)
	}
	if depth > maxNodeDepth {
		return fmt.Errorf("%w: node hierarchy deeper than %d", ErrInvalidReference, maxNodeDepth)
	}

	node := doc.Nodes[ni]
	world := parent.Mul(localTransform(node))

	if node.Mesh != nil {
		mi := int(*node.Mesh)
		if mi >= len(doc.Meshes) {
			return fmt.Errorf("%w: node %d mesh %d", ErrInvalidReference, ni, mi)
		}
		if err := m.appendMesh(doc, mi, node.Name, world); err != nil {
			return err
		}
	}

	for _, ci := range node.Children {
		if err := m.appendNode(doc, int(ci), world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func localTransform(node *gltf.Node) math.Mat4 {
	if mat := node.MatrixOrDefault(); mat != gltf.DefaultMatrix {
		return math.Mat4(mat)
	}
	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	return math.TRS(
		math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	)
}

func (m *Mesh) appendMesh(doc *gltf.Document, mi int, nodeName string, world math.Mat4) error {
	gm := doc.Meshes[mi]
	for pi, prim := range gm.Primitives {
		base := len(m.Positions)
		if err := m.appendPrimitive(doc, prim, world); err != nil {
			return fmt.Errorf("mesh %d (%q) primitive %d: %w", mi, gm.Name, pi, err)
		}
		last := m.Sections[len(m.Sections)-1]
		m.Primitives = append(m.Primitives, Primitive{
			Node:      nodeName,
			Mesh:      gm.Name,
			MeshIndex: mi,
			Index:     pi,
			Vertices:  len(m.Positions) - base,
			Triangles: int(last.IndexCount / 3),
		})
	}
	return nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx >= len(doc.Accessors) || doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("%w: accessor %d", ErrInvalidReference, idx)
	}
	return doc.Accessors[idx], nil
}

func (m *Mesh) appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, world math.Mat4) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		return fmt.Errorf("%w: %v", ErrUnsupportedMode, prim.Mode)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return ErrNoPositions
	}
	posAcr, err := accessor(doc, int(posIdx))
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(doc, posAcr, nil)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}

	var indices []uint32
	if prim.Indices != nil {
		idxAcr, err := accessor(doc, int(*prim.Indices))
		if err != nil {
			return err
		}
		indices, err = modeler.ReadIndices(doc, idxAcr, nil)
		if err != nil {
			return fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if err := meshlet.ValidateIndices(indices, len(positions)); err != nil {
		return err
	}

	base := uint32(len(m.Positions))
	for _, p := range positions {
		m.Positions = append(m.Positions, world.TransformPoint(math.Vec3{X: p[0], Y: p[1], Z: p[2]}))
	}

	// Mirroring transforms flip the winding, so swap two corners to keep
	// front faces facing out.
	mirrored := world.Determinant3() < 0
	start := uint32(len(m.Indices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i]+base, indices[i+1]+base, indices[i+2]+base
		if mirrored {
			b, c = c, b
		}
		m.Indices = append(m.Indices, a, b, c)
	}
	m.Sections = append(m.Sections, meshlet.Section{
		IndexStart: start,
		IndexCount: uint32(len(indices)),
	})
	return nil
}
