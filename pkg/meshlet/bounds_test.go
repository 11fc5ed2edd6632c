package meshlet

import (
	"math/rand"
	"testing"

	"github.com/Faultbox/midgard-meshlet/pkg/math"
)

func TestMinimumBoundingSphereEmpty(t *testing.T) {
	if s := MinimumBoundingSphere(nil); s != (Sphere{}) {
		t.Errorf("MinimumBoundingSphere(nil) = %v, want zero", s)
	}
}

func TestMinimumBoundingSphereSinglePoint(t *testing.T) {
	p := math.Vec3{X: 1, Y: 2, Z: 3}
	s := MinimumBoundingSphere([]math.Vec3{p})
	if s.Center != p || s.Radius != 0 {
		t.Errorf("single point sphere = %v, want center %v radius 0", s, p)
	}
}

func TestMinimumBoundingSphereSegment(t *testing.T) {
	s := MinimumBoundingSphere([]math.Vec3{{X: -2}, {X: 2}, {X: 0.5}})
	if s.Center != (math.Vec3{}) {
		t.Errorf("center = %v, want origin", s.Center)
	}
	if s.Radius != 2 {
		t.Errorf("radius = %v, want 2", s.Radius)
	}
}

func TestMinimumBoundingSphereGrows(t *testing.T) {
	// The widest axis pair misses the corner point, which forces growth
	points := []math.Vec3{{X: -1}, {X: 1}, {Y: 0.2}, {X: 0.9, Y: 0.9, Z: 0.9}}
	s := MinimumBoundingSphere(points)
	for _, p := range points {
		if !s.Contains(p, 1e-5) {
			t.Errorf("point %v outside sphere %v", p, s)
		}
	}
	if s.Radius <= 1 {
		t.Errorf("radius = %v, expected growth beyond 1", s.Radius)
	}
}

func TestMinimumBoundingSphereContainsRandomClouds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		points := make([]math.Vec3, n)
		scale := float32(1 + rng.Intn(1000))
		for i := range points {
			points[i] = math.Vec3{
				X: (rng.Float32()*2 - 1) * scale,
				Y: (rng.Float32()*2 - 1) * scale,
				Z: (rng.Float32()*2 - 1) * scale,
			}
		}

		s := MinimumBoundingSphere(points)
		eps := 1e-4 * max(s.Radius, 1)
		for _, p := range points {
			if !s.Contains(p, eps) {
				t.Fatalf("trial %d: point %v outside sphere %v (dist %v)", trial, p, s, p.Distance(s.Center))
			}
		}
	}
}
