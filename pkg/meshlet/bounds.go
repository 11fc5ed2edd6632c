package meshlet

import (
	gomath "math"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

// MinimumBoundingSphere returns an approximate (Ritter-style) bounding sphere
// of points. The result encloses every point but is not guaranteed minimal.
// An empty input yields the zero sphere.
func MinimumBoundingSphere(points []math.Vec3) Sphere {
	if len(points) == 0 {
		return Sphere{}
	}

	// Extreme points along each axis
	var minAxis, maxAxis [3]int
	for i := 1; i < len(points); i++ {
		p := points[i]
		for j := 0; j < 3; j++ {
			if p.Axis(j) < points[minAxis[j]].Axis(j) {
				minAxis[j] = i
			}
			if p.Axis(j) > points[maxAxis[j]].Axis(j) {
				maxAxis[j] = i
			}
		}
	}

	// Seed with the widest axis pair
	axis := 0
	var distSqMax float32
	for j := 0; j < 3; j++ {
		d := points[maxAxis[j]].DistanceSq(points[minAxis[j]])
		if d > distSqMax {
			distSqMax = d
			axis = j
		}
	}

	p1 := points[minAxis[axis]]
	p2 := points[maxAxis[axis]]
	center := p1.Add(p2).Scale(0.5)
	radius := p2.Distance(p1) * 0.5
	radiusSq := radius * radius

	// Grow to cover stragglers
	for _, p := range points {
		distSq := p.DistanceSq(center)
		if distSq <= radiusSq {
			continue
		}
		dist := float32(gomath.Sqrt(float64(distSq)))
		k := (dist - radius) / (2 * dist)
		center = center.Lerp(p, k)
		radius = (radius + dist) * 0.5
		radiusSq = radius * radius
	}

	return Sphere{Center: center, Radius: radius}
}
