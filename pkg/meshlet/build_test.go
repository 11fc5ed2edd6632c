package meshlet

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildValidation(t *testing.T) {
	m := unitQuad()

	tests := []struct {
		name    string
		indices []uint32
		opts    Options
		wantErr error
	}{
		{"ragged indices", m.indices[:5], testOptions(64, 126), ErrIndexCount},
		{"index out of range", []uint32{0, 1, 4}, testOptions(64, 126), ErrIndexRange},
		{"vertex budget too large", m.indices, testOptions(2048, 126), ErrMaxVertices},
		{"zero primitive budget", m.indices, testOptions(64, 0), ErrMaxPrimitives},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.indices, m.positions, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildEmptyMesh(t *testing.T) {
	r, err := Build(nil, Positions{}, DefaultOptions())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(r.Meshlets) != 0 {
		t.Errorf("got %d meshlets for an empty mesh", len(r.Meshlets))
	}
	if len(r.Ranges) != 1 || r.Ranges[0].MeshletCount != 0 {
		t.Errorf("Ranges = %+v, want one empty range", r.Ranges)
	}
}

// twoSectionMesh places a grid and a sphere in one shared vertex/index buffer.
func twoSectionMesh() (testMesh, []Section) {
	a := grid(6)
	b := icosphere(2)

	m := testMesh{positions: append(Positions{}, a.positions...)}
	m.indices = append(m.indices, a.indices...)
	offset := uint32(len(a.positions))
	m.positions = append(m.positions, b.positions...)
	for _, idx := range b.indices {
		m.indices = append(m.indices, idx+offset)
	}

	sections := []Section{
		{IndexStart: 0, IndexCount: uint32(len(a.indices))},
		{IndexStart: uint32(len(a.indices)), IndexCount: uint32(len(b.indices))},
	}
	return m, sections
}

func TestBuildSectionsMatchesPerSectionBuild(t *testing.T) {
	m, sections := twoSectionMesh()
	opts := testOptions(64, 64)
	opts.Workers = 2

	r, err := BuildSections(context.Background(), m.indices, sections, m.positions, opts)
	if err != nil {
		t.Fatalf("BuildSections() error: %v", err)
	}
	checkResult(t, r, m, opts)

	if len(r.Ranges) != len(sections) {
		t.Fatalf("got %d ranges, want %d", len(r.Ranges), len(sections))
	}

	for si, s := range sections {
		single, err := Build(sectionIndices(m.indices, s), m.positions, opts)
		if err != nil {
			t.Fatalf("Build(section %d) error: %v", si, err)
		}

		rng := r.Ranges[si]
		if int(rng.MeshletCount) != len(single.Meshlets) {
			t.Fatalf("section %d: %d meshlets, standalone build has %d", si, rng.MeshletCount, len(single.Meshlets))
		}
		for j, want := range single.Meshlets {
			got := r.Meshlets[rng.MeshletStart+uint32(j)]
			if !slices.Equal(r.MeshletVertices(got), single.MeshletVertices(want)) ||
				!slices.Equal(r.MeshletTriangles(got), single.MeshletTriangles(want)) {
				t.Errorf("section %d meshlet %d differs from standalone build", si, j)
			}
			if r.CullData[rng.MeshletStart+uint32(j)] != single.CullData[j] {
				t.Errorf("section %d meshlet %d cull data differs", si, j)
			}
		}
	}
}

func TestBuildSectionsWorkerCountDoesNotChangeOutput(t *testing.T) {
	m, sections := twoSectionMesh()

	var outputs []*Result
	for _, workers := range []int{1, 4} {
		opts := testOptions(32, 48)
		opts.Workers = workers
		r, err := BuildSections(context.Background(), m.indices, sections, m.positions, opts)
		if err != nil {
			t.Fatalf("BuildSections(workers=%d) error: %v", workers, err)
		}
		outputs = append(outputs, r)
	}

	a, b := outputs[0], outputs[1]
	if !slices.Equal(a.Meshlets, b.Meshlets) ||
		!slices.Equal(a.UniqueVertexIndices, b.UniqueVertexIndices) ||
		!slices.Equal(a.PrimitiveIndices, b.PrimitiveIndices) ||
		!slices.Equal(a.Ranges, b.Ranges) {
		t.Error("output depends on worker count")
	}
}

func TestBuildSectionsInvalidRange(t *testing.T) {
	m := unitQuad()
	sections := []Section{{IndexStart: 3, IndexCount: 6}}
	_, err := BuildSections(context.Background(), m.indices, sections, m.positions, DefaultOptions())
	if !errors.Is(err, ErrSectionRange) {
		t.Errorf("expected ErrSectionRange, got %v", err)
	}

	sections = []Section{{IndexStart: 1, IndexCount: 4}}
	_, err = BuildSections(context.Background(), m.indices, sections, m.positions, DefaultOptions())
	if !errors.Is(err, ErrIndexCount) {
		t.Errorf("expected ErrIndexCount, got %v", err)
	}
}

func TestBuildSectionsCanceled(t *testing.T) {
	m, sections := twoSectionMesh()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildSections(ctx, m.indices, sections, m.positions, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuildLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m, sections := twoSectionMesh()
	opts := DefaultOptions()
	opts.Logger = zap.New(core)

	r, err := BuildSections(context.Background(), m.indices, sections, m.positions, opts)
	if err != nil {
		t.Fatalf("BuildSections() error: %v", err)
	}

	if got := logs.FilterMessage("section clustered").Len(); got != len(sections) {
		t.Errorf("got %d section log entries, want %d", got, len(sections))
	}
	summary := logs.FilterMessage("meshlets built").All()
	if len(summary) != 1 {
		t.Fatalf("got %d summary entries, want 1", len(summary))
	}
	if got := summary[0].ContextMap()["meshlets"]; got != int64(len(r.Meshlets)) {
		t.Errorf("logged meshlets = %v, want %d", got, len(r.Meshlets))
	}
}
