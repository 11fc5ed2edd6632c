package meshlet

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a meshlet build.
type Options struct {
	MaxVertices   uint32
	MaxPrimitives uint32

	// CullData enables per-meshlet bounding sphere and normal cone generation.
	CullData bool
	// ClockwiseWinding flips face normals for clockwise front faces.
	ClockwiseWinding bool

	// Workers bounds how many sections are clustered concurrently.
	// Zero or negative means GOMAXPROCS.
	Workers int

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns budgets suited to common mesh shader limits.
func DefaultOptions() Options {
	return Options{
		MaxVertices:   64,
		MaxPrimitives: 126,
		CullData:      true,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Build splits the whole index buffer into meshlets.
func Build(indices []uint32, src PositionSource, opts Options) (*Result, error) {
	sections := []Section{{IndexStart: 0, IndexCount: uint32(len(indices))}}
	return BuildSections(context.Background(), indices, sections, src, opts)
}

// sectionOutput is what one worker hands back for a section.
type sectionOutput struct {
	meshlets []*WorkingMeshlet
	cull     []CullData
}

// BuildSections splits each section of a shared index buffer into its own run
// of meshlets. Sections are clustered concurrently and the output is
// concatenated in section order, one MeshletRange per section.
func BuildSections(ctx context.Context, indices []uint32, sections []Section, src PositionSource, opts Options) (*Result, error) {
	if err := validateBudget(opts.MaxVertices, opts.MaxPrimitives); err != nil {
		return nil, err
	}
	for i, s := range sections {
		if uint64(s.IndexStart)+uint64(s.IndexCount) > uint64(len(indices)) {
			return nil, fmt.Errorf("%w: section %d [%d,+%d) of %d indices",
				ErrSectionRange, i, s.IndexStart, s.IndexCount, len(indices))
		}
		if err := ValidateIndices(sectionIndices(indices, s), src.Len()); err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
	}

	log := opts.logger()
	start := time.Now()

	// Point reps depend only on positions; share them across sections
	reps := pointReps(src)

	outputs := make([]sectionOutput, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for i, s := range sections {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			idx := sectionIndices(indices, s)
			adj := buildAdjacency(idx, src, reps)
			working := Cluster(idx, adj, src, opts.MaxVertices, opts.MaxPrimitives)

			out := sectionOutput{meshlets: working}
			if opts.CullData {
				out.cull = make([]CullData, len(working))
				for j, w := range working {
					out.cull[j] = GenerateCullData(w.UniqueVertices, w.Triangles, src, opts.ClockwiseWinding)
				}
			}
			outputs[i] = out

			log.Debug("section clustered",
				zap.Int("section", i),
				zap.Int("triangles", len(idx)/3),
				zap.Int("boundary_edges", adj.BoundaryEdges()),
				zap.Int("meshlets", len(working)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Result{}
	for _, out := range outputs {
		r.Ranges = append(r.Ranges, MeshletRange{
			MeshletStart: uint32(len(r.Meshlets)),
			MeshletCount: uint32(len(out.meshlets)),
		})
		Pack(out.meshlets, r)
		r.CullData = append(r.CullData, out.cull...)
	}

	log.Debug("meshlets built",
		zap.Int("sections", len(sections)),
		zap.Int("meshlets", len(r.Meshlets)),
		zap.Int("unique_vertices", len(r.UniqueVertexIndices)),
		zap.Int("primitives", len(r.PrimitiveIndices)),
		zap.Duration("elapsed", time.Since(start)))

	return r, nil
}

func sectionIndices(indices []uint32, s Section) []uint32 {
	return indices[s.IndexStart : s.IndexStart+s.IndexCount]
}
