package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-meshlet/internal/gltfmesh"
	"github.com/Faultbox/midgard-meshlet/pkg/meshlet"
)

// report is the YAML document written by the build command.
type report struct {
	Source   string          `yaml:"source"`
	Settings reportSettings  `yaml:"settings"`
	Totals   reportTotals    `yaml:"totals"`
	Sections []sectionReport `yaml:"sections"`
}

type reportSettings struct {
	MaxVertices      uint32 `yaml:"max_vertices"`
	MaxPrimitives    uint32 `yaml:"max_primitives"`
	CullData         bool   `yaml:"cull_data"`
	ClockwiseWinding bool   `yaml:"clockwise_winding"`
}

type reportTotals struct {
	Sections        int     `yaml:"sections"`
	Triangles       int     `yaml:"triangles"`
	Meshlets        int     `yaml:"meshlets"`
	UniqueVertices  int     `yaml:"unique_vertices"`
	AvgVertices     float64 `yaml:"avg_vertices"`
	AvgPrimitives   float64 `yaml:"avg_primitives"`
	DegenerateCones int     `yaml:"degenerate_cones"`
	VertexBytes     int     `yaml:"vertex_index_bytes"`
	PrimitiveBytes  int     `yaml:"primitive_index_bytes"`
}

type sectionReport struct {
	Primitive    gltfmesh.Primitive `yaml:",inline"`
	MeshletStart uint32             `yaml:"meshlet_start"`
	Meshlets     []meshletReport    `yaml:"meshlets"`
}

type meshletReport struct {
	Meshlet meshlet.Meshlet   `yaml:",inline"`
	Cull    *meshlet.CullData `yaml:"cull,omitempty"`
}

func newReport(source string, mesh *gltfmesh.Mesh, r *meshlet.Result, opts meshlet.Options) *report {
	rep := &report{
		Source: source,
		Settings: reportSettings{
			MaxVertices:      opts.MaxVertices,
			MaxPrimitives:    opts.MaxPrimitives,
			CullData:         opts.CullData,
			ClockwiseWinding: opts.ClockwiseWinding,
		},
		Totals: reportTotals{
			Sections:       len(r.Ranges),
			Triangles:      len(r.PrimitiveIndices),
			Meshlets:       len(r.Meshlets),
			UniqueVertices: len(r.UniqueVertexIndices),
			VertexBytes:    4 * len(r.UniqueVertexIndices),
			PrimitiveBytes: 4 * len(r.PrimitiveIndices),
		},
	}

	if n := len(r.Meshlets); n > 0 {
		rep.Totals.AvgVertices = float64(len(r.UniqueVertexIndices)) / float64(n)
		rep.Totals.AvgPrimitives = float64(len(r.PrimitiveIndices)) / float64(n)
	}
	for _, cd := range r.CullData {
		if cd.Degenerate {
			rep.Totals.DegenerateCones++
		}
	}

	for i, rng := range r.Ranges {
		sec := sectionReport{
			Primitive:    mesh.Primitives[i],
			MeshletStart: rng.MeshletStart,
		}
		for j := rng.MeshletStart; j < rng.MeshletStart+rng.MeshletCount; j++ {
			mr := meshletReport{Meshlet: r.Meshlets[j]}
			if len(r.CullData) > 0 {
				mr.Cull = &r.CullData[j]
			}
			sec.Meshlets = append(sec.Meshlets, mr)
		}
		rep.Sections = append(rep.Sections, sec)
	}
	return rep
}

// writeReport writes the report as YAML to path, or to stdout when path is
// empty or "-".
func writeReport(path string, rep *report) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return err
	}

	if writesStdout(path) {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// writesStdout reports whether a report path means standard output.
func writesStdout(path string) bool {
	return path == "" || path == "-"
}
