package meshlet

// Pack appends finished meshlets to r, recording offsets into the shared
// vertex and primitive arrays. Existing contents of r are preserved.
func Pack(working []*WorkingMeshlet, r *Result) {
	vertexOffset := uint32(len(r.UniqueVertexIndices))
	primOffset := uint32(len(r.PrimitiveIndices))

	for _, w := range working {
		m := Meshlet{
			VertexOffset:    vertexOffset,
			VertexCount:     uint32(len(w.UniqueVertices)),
			PrimitiveOffset: primOffset,
			PrimitiveCount:  uint32(len(w.Triangles)),
		}
		r.Meshlets = append(r.Meshlets, m)
		r.UniqueVertexIndices = append(r.UniqueVertexIndices, w.UniqueVertices...)
		r.PrimitiveIndices = append(r.PrimitiveIndices, w.Triangles...)

		vertexOffset += m.VertexCount
		primOffset += m.PrimitiveCount
	}
}
