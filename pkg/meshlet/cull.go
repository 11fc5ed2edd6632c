package meshlet

import (
	gomath "math"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// DegenerateConeThreshold is the smallest cosine between the cone axis and any
// face normal for which a normal cone is still worth testing. Clusters that
// spread wider than this get the always-visible cone.
const DegenerateConeThreshold = 0.1

// NormalCone bounds the face normals of a meshlet.
// A cluster faces away from a camera when dot(normalize(camera-apex), -Axis) >= Cutoff.
type NormalCone struct {
	Axis   math.Vec3 `yaml:"axis"`
	Cutoff float32   `yaml:"cutoff"`
}

// Packed sentinel cone: zero axis and maximum cutoff, never culled.
var degeneratePackedCone = [4]uint8{127, 127, 127, 255}

// CullData is per-meshlet culling metadata.
type CullData struct {
	BoundingSphere Sphere     `yaml:"bounding_sphere"`
	Cone           NormalCone `yaml:"cone"`
	// PackedCone is the cone as biased SNORM8 axis plus UNORM8 cutoff.
	PackedCone [4]uint8 `yaml:"packed_cone,flow"`
	// ApexOffset is the distance from the sphere center to the cone apex along -Axis.
	ApexOffset float32 `yaml:"apex_offset"`
	Degenerate bool    `yaml:"degenerate"`
}

// Apex returns the cone apex position.
func (c CullData) Apex() math.Vec3 {
	return c.BoundingSphere.Center.Sub(c.Cone.Axis.Scale(c.ApexOffset))
}

// BackFacing reports whether every triangle of the meshlet faces away from camera.
// Degenerate cones never report back-facing.
func (c CullData) BackFacing(camera math.Vec3) bool {
	if c.Degenerate {
		return false
	}
	view := camera.Sub(c.Apex()).Normalize()
	return view.Dot(c.Cone.Axis.Neg()) >= c.Cone.Cutoff
}

// GenerateCullData computes cull data for one meshlet given its global vertex
// indices and packed triangles. Set clockwise for clockwise front faces.
func GenerateCullData(vertices []uint32, triangles []PackedTriangle, src PositionSource, clockwise bool) CullData {
	positions := make([]math.Vec3, len(vertices))
	for i, v := range vertices {
		positions[i] = src.Position(v)
	}

	// Face normals; zero-area triangles stay out of the cone
	normals := make([]math.Vec3, 0, len(triangles))
	valid := make([]bool, len(triangles))
	for i, t := range triangles {
		i0, i1, i2 := t.Unpack()
		n, ok := faceNormal(positions[i0], positions[i1], positions[i2])
		if !ok {
			continue
		}
		if clockwise {
			n = n.Neg()
		}
		valid[i] = true
		normals = append(normals, n)
	}

	var cd CullData
	cd.BoundingSphere = MinimumBoundingSphere(positions)

	if len(normals) == 0 {
		cd.setDegenerate()
		return cd
	}

	axis := MinimumBoundingSphere(normals).Center.Normalize()

	minDot := float32(1)
	for _, n := range normals {
		minDot = min(minDot, axis.Dot(n))
	}

	if minDot < DegenerateConeThreshold {
		cd.setDegenerate()
		return cd
	}

	// Walk back from the center along -axis until behind every triangle plane
	var maxT float32
	ni := 0
	for i, t := range triangles {
		if !valid[i] {
			continue
		}
		n := normals[ni]
		ni++

		i0, _, _ := t.Unpack()
		dc := cd.BoundingSphere.Center.Sub(positions[i0]).Dot(n)
		dn := axis.Dot(n)
		maxT = max(maxT, dc/dn)
	}

	// Normals span acos(minDot); the culling cone is its complement, so the
	// cutoff is sin of that angle.
	cutoff := float32(gomath.Sqrt(float64(1 - minDot*minDot)))

	cd.Cone = NormalCone{Axis: axis, Cutoff: cutoff}
	cd.ApexOffset = maxT
	cd.PackedCone = packCone(axis, cutoff)
	return cd
}

func (cd *CullData) setDegenerate() {
	cd.Degenerate = true
	cd.Cone = NormalCone{Cutoff: 1}
	cd.PackedCone = degeneratePackedCone
	cd.ApexOffset = 0
}

// GenerateAllCullData computes cull data for every meshlet in r, writing
// r.CullData in meshlet order.
func GenerateAllCullData(r *Result, src PositionSource, clockwise bool) {
	r.CullData = r.CullData[:0]
	for _, m := range r.Meshlets {
		r.CullData = append(r.CullData, GenerateCullData(r.MeshletVertices(m), r.MeshletTriangles(m), src, clockwise))
	}
}

// packCone quantizes the axis to biased SNORM8 and widens the cutoff by the
// quantization error so the packed cone stays conservative.
func packCone(axis math.Vec3, cutoff float32) [4]uint8 {
	var out [4]uint8
	var totalError float32
	for i := 0; i < 3; i++ {
		q := quantizeSNorm(axis.Axis(i))
		out[i] = q
		totalError += float32(gomath.Abs(float64(dequantizeSNorm(q) - axis.Axis(i))))
	}

	c := float32(quantizeUNorm(cutoff+totalError)) + 1
	out[3] = uint8(min(c, 255))
	return out
}

func quantizeSNorm(v float32) uint8 {
	v = max(-1, min(v, 1))
	return uint8((v*0.5 + 0.5) * 255)
}

func dequantizeSNorm(q uint8) float32 {
	return float32(q)/255*2 - 1
}

func quantizeUNorm(v float32) uint8 {
	v = max(0, min(v, 1))
	return uint8(v * 255)
}

// UnpackCone expands a packed cone back to floats.
func UnpackCone(p [4]uint8) NormalCone {
	return NormalCone{
		Axis:   math.Vec3{X: dequantizeSNorm(p[0]), Y: dequantizeSNorm(p[1]), Z: dequantizeSNorm(p[2])},
		Cutoff: float32(p[3]) / 255,
	}
}
