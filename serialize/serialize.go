// Package serialize implements spec §6's binary, schema-versioned flat
// encoding for meshes, probe batches, and baked data layers. It follows
// the teacher's `preset.File` posture of a schema-versioned, optional-
// field loader (spec §6: "the reader must tolerate absent layers"), but
// in a binary little-endian wire format rather than JSON, since spec §6
// requires a binary flat format.
package serialize

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/pathdata"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

// SchemaVersion is the version this package writes and the highest
// version it will read (spec §6: "reject files whose embedded version is
// higher than the reader's").
const SchemaVersion uint32 = 1

var order = binary.LittleEndian

func writeU32(w io.Writer, v uint32) error  { return binary.Write(w, order, v) }
func writeI32(w io.Writer, v int32) error   { return binary.Write(w, order, v) }
func writeF32(w io.Writer, v float32) error { return binary.Write(w, order, math.Float32bits(v)) }
func writeU8(w io.Writer, v uint8) error    { return binary.Write(w, order, v) }

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, order, &v)
	return v, err
}
func readI32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, order, &v)
	return v, err
}
func readF32(r io.Reader) (float32, error) {
	var bits uint32
	if err := binary.Read(r, order, &bits); err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}
func readU8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, order, &v)
	return v, err
}

func writeVector3(w io.Writer, v geom.Vector3) error {
	if err := writeF32(w, v.X); err != nil {
		return err
	}
	if err := writeF32(w, v.Y); err != nil {
		return err
	}
	return writeF32(w, v.Z)
}

func readVector3(r io.Reader) (geom.Vector3, error) {
	var v geom.Vector3
	var err error
	if v.X, err = readF32(r); err != nil {
		return v, err
	}
	if v.Y, err = readF32(r); err != nil {
		return v, err
	}
	if v.Z, err = readF32(r); err != nil {
		return v, err
	}
	return v, nil
}

func checkVersion(fileVersion uint32) error {
	if fileVersion > SchemaVersion {
		return fmt.Errorf("serialize: file schema version %d newer than reader version %d", fileVersion, SchemaVersion)
	}
	return nil
}

// WriteMesh writes a Mesh { vertices: Vec3[], triangles: Triangle[] }
// shape (spec §6) plus per-triangle material indices.
func WriteMesh(w io.Writer, m *geom.Mesh) error {
	if err := writeU32(w, SchemaVersion); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(m.Vertices))); err != nil {
		return err
	}
	for _, v := range m.Vertices {
		if err := writeVector3(w, v.Vector3()); err != nil {
			return err
		}
		if err := writeF32(w, v.W); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(len(m.Triangles))); err != nil {
		return err
	}
	for i, t := range m.Triangles {
		if err := writeI32(w, t.A); err != nil {
			return err
		}
		if err := writeI32(w, t.B); err != nil {
			return err
		}
		if err := writeI32(w, t.C); err != nil {
			return err
		}
		matOf := int32(-1)
		if i < len(m.MaterialOf) {
			matOf = m.MaterialOf[i]
		}
		if err := writeI32(w, matOf); err != nil {
			return err
		}
	}
	return nil
}

// ReadMesh is the inverse of WriteMesh.
func ReadMesh(r io.Reader) (*geom.Mesh, error) {
	version, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	numVerts, err := readU32(r)
	if err != nil {
		return nil, err
	}
	vertices := make([]geom.Vector4, numVerts)
	for i := range vertices {
		v3, err := readVector3(r)
		if err != nil {
			return nil, err
		}
		w, err := readF32(r)
		if err != nil {
			return nil, err
		}
		vertices[i] = geom.NewVector4FromVector3(v3, w)
	}

	numTris, err := readU32(r)
	if err != nil {
		return nil, err
	}
	triangles := make([]geom.Triangle, numTris)
	materialOf := make([]int32, numTris)
	for i := range triangles {
		a, err := readI32(r)
		if err != nil {
			return nil, err
		}
		b, err := readI32(r)
		if err != nil {
			return nil, err
		}
		c, err := readI32(r)
		if err != nil {
			return nil, err
		}
		matOf, err := readI32(r)
		if err != nil {
			return nil, err
		}
		triangles[i] = geom.Triangle{A: a, B: b, C: c}
		materialOf[i] = matOf
	}
	return geom.NewMesh(vertices, triangles, materialOf), nil
}

// dataKindAbsent/dataKindPathing distinguish what, if anything, a written
// BakedDataLayer carries: spec §6 requires readers to tolerate absent
// layers (e.g. a batch whose Reflections payload this module doesn't
// serialize because §1 treats the GPU/embedded reflection backends as
// out-of-scope interfaces only).
const (
	dataKindAbsent uint8 = iota
	dataKindPathing
)

func writeIdentifier(w io.Writer, id probe.Identifier) error {
	if err := writeU8(w, uint8(id.Variation)); err != nil {
		return err
	}
	if err := writeU8(w, uint8(id.Type)); err != nil {
		return err
	}
	if err := writeVector3(w, id.Influence.Center); err != nil {
		return err
	}
	return writeF32(w, id.Influence.Radius)
}

func readIdentifier(r io.Reader) (probe.Identifier, error) {
	var id probe.Identifier
	v, err := readU8(r)
	if err != nil {
		return id, err
	}
	id.Variation = probe.Variation(v)
	t, err := readU8(r)
	if err != nil {
		return id, err
	}
	id.Type = probe.DataType(t)
	center, err := readVector3(r)
	if err != nil {
		return id, err
	}
	radius, err := readF32(r)
	if err != nil {
		return id, err
	}
	id.Influence = probe.Sphere{Center: center, Radius: radius}
	return id, nil
}

func writeVisGraph(w io.Writer, g *visibility.Graph) error {
	if g == nil {
		return writeU32(w, 0)
	}
	if err := writeU32(w, uint32(len(g.Edges))); err != nil {
		return err
	}
	for _, edges := range g.Edges {
		if err := writeU32(w, uint32(len(edges))); err != nil {
			return err
		}
		for _, e := range edges {
			if err := writeI32(w, int32(e.Neighbor)); err != nil {
				return err
			}
			if err := writeF32(w, e.Cost); err != nil {
				return err
			}
		}
	}
	return nil
}

func readVisGraph(r io.Reader) (*visibility.Graph, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	g := &visibility.Graph{Edges: make([][]visibility.Edge, n)}
	for i := range g.Edges {
		m, err := readU32(r)
		if err != nil {
			return nil, err
		}
		edges := make([]visibility.Edge, m)
		for j := range edges {
			neighbor, err := readI32(r)
			if err != nil {
				return nil, err
			}
			cost, err := readF32(r)
			if err != nil {
				return nil, err
			}
			edges[j] = visibility.Edge{Neighbor: int(neighbor), Cost: cost}
		}
		g.Edges[i] = edges
	}
	return g, nil
}

func writeSoundPath(w io.Writer, sp pathdata.SoundPath) error {
	direct := uint8(0)
	if sp.Direct {
		direct = 1
	}
	if err := writeU8(w, direct); err != nil {
		return err
	}
	for _, v := range []int32{int32(sp.FirstProbe), int32(sp.LastProbe), int32(sp.ProbeAfterFirst), int32(sp.ProbeBeforeLast)} {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	if err := writeF32(w, sp.DistanceInternal); err != nil {
		return err
	}
	return writeF32(w, sp.DeviationInternal)
}

func readSoundPath(r io.Reader) (pathdata.SoundPath, error) {
	var sp pathdata.SoundPath
	direct, err := readU8(r)
	if err != nil {
		return sp, err
	}
	sp.Direct = direct != 0
	ints := make([]int32, 4)
	for i := range ints {
		v, err := readI32(r)
		if err != nil {
			return sp, err
		}
		ints[i] = v
	}
	sp.FirstProbe, sp.LastProbe, sp.ProbeAfterFirst, sp.ProbeBeforeLast = int(ints[0]), int(ints[1]), int(ints[2]), int(ints[3])
	if sp.DistanceInternal, err = readF32(r); err != nil {
		return sp, err
	}
	if sp.DeviationInternal, err = readF32(r); err != nil {
		return sp, err
	}
	return sp, nil
}

// writePathingLayer writes a BakedPathingData shape: the visibility
// graph, the unique path table, and a sparse i->ref mapping flattened
// into two parallel i32 arrays ("pathIndices"/"paths" per spec §6) that
// recover the triangular N×N table without storing its upper half.
func writePathingLayer(w io.Writer, bpd *pathdata.BakedPathData) error {
	if err := writeVisGraph(w, bpd.VisGraph); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(bpd.UniqueSoundPaths))); err != nil {
		return err
	}
	for _, sp := range bpd.UniqueSoundPaths {
		if err := writeSoundPath(w, sp); err != nil {
			return err
		}
	}

	n := bpd.NumProbes()
	if err := writeU32(w, uint32(n)); err != nil {
		return err
	}
	// Flatten the triangular table: for i in [0,n), for j in [0,i], the
	// ref index into UniqueSoundPaths (spec §6 "pathIndices"/"paths"
	// sparse i->ref mapping). pathIndices holds n+1 prefix offsets, paths
	// holds sum(i+1) entries.
	offset := int32(0)
	pathIndices := make([]int32, n+1)
	paths := make([]int32, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		pathIndices[i] = offset
		for j := 0; j <= i; j++ {
			sp := bpd.LookupShortestPath(i, j)
			idx := indexOfSoundPath(bpd.UniqueSoundPaths, sp)
			paths = append(paths, int32(idx))
			offset++
		}
	}
	pathIndices[n] = offset

	if err := writeU32(w, uint32(len(pathIndices))); err != nil {
		return err
	}
	for _, v := range pathIndices {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(len(paths))); err != nil {
		return err
	}
	for _, v := range paths {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func indexOfSoundPath(paths []pathdata.SoundPath, sp pathdata.SoundPath) int {
	for i, p := range paths {
		if p == sp {
			return i
		}
	}
	return -1
}

func readPathingLayer(r io.Reader) (*pathdata.BakedPathData, error) {
	g, err := readVisGraph(r)
	if err != nil {
		return nil, err
	}
	numUnique, err := readU32(r)
	if err != nil {
		return nil, err
	}
	unique := make([]pathdata.SoundPath, numUnique)
	for i := range unique {
		sp, err := readSoundPath(r)
		if err != nil {
			return nil, err
		}
		unique[i] = sp
	}

	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	numPI, err := readU32(r)
	if err != nil {
		return nil, err
	}
	pathIndices := make([]int32, numPI)
	for i := range pathIndices {
		if pathIndices[i], err = readI32(r); err != nil {
			return nil, err
		}
	}
	numPaths, err := readU32(r)
	if err != nil {
		return nil, err
	}
	paths := make([]int32, numPaths)
	for i := range paths {
		if paths[i], err = readI32(r); err != nil {
			return nil, err
		}
	}

	refs := make([][]int, n)
	for i := 0; i < int(n); i++ {
		start, end := pathIndices[i], pathIndices[i+1]
		row := make([]int, 0, end-start)
		for k := start; k < end; k++ {
			row = append(row, int(paths[k]))
		}
		refs[i] = row
	}
	return pathdata.FromRefs(unique, refs, g), nil
}

// WriteProbeBatch writes a ProbeBatch { probes: Sphere[], dataLayers:
// BakedDataLayer[] } shape (spec §6). Every layer whose payload is a
// *pathdata.BakedPathData is concretely serialized, whatever its
// identifier's type; any other layer is written as its identifier plus an
// absent-payload marker and is not registered again on read.
func WriteProbeBatch(w io.Writer, b *probe.Batch) error {
	if err := writeU32(w, SchemaVersion); err != nil {
		return err
	}
	probes := b.Probes()
	if err := writeU32(w, uint32(len(probes))); err != nil {
		return err
	}
	for _, p := range probes {
		if err := writeVector3(w, p.Center()); err != nil {
			return err
		}
		if err := writeF32(w, p.Radius()); err != nil {
			return err
		}
	}

	ids := b.Identifiers()
	if err := writeU32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeIdentifier(w, id); err != nil {
			return err
		}
		data, _ := b.Data(id)
		bpd, ok := data.(*pathdata.BakedPathData)
		if !ok {
			if err := writeU8(w, dataKindAbsent); err != nil {
				return err
			}
			continue
		}
		if err := writeU8(w, dataKindPathing); err != nil {
			return err
		}
		if err := writePathingLayer(w, bpd); err != nil {
			return err
		}
	}
	return nil
}

// ReadProbeBatch is the inverse of WriteProbeBatch.
func ReadProbeBatch(r io.Reader) (*probe.Batch, error) {
	version, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	numProbes, err := readU32(r)
	if err != nil {
		return nil, err
	}
	probes := make([]probe.Probe, numProbes)
	for i := range probes {
		center, err := readVector3(r)
		if err != nil {
			return nil, err
		}
		radius, err := readF32(r)
		if err != nil {
			return nil, err
		}
		probes[i] = probe.NewProbe(center, radius)
	}
	batch := probe.NewBatch(probes)

	numLayers, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numLayers; i++ {
		id, err := readIdentifier(r)
		if err != nil {
			return nil, err
		}
		kind, err := readU8(r)
		if err != nil {
			return nil, err
		}
		switch kind {
		case dataKindAbsent:
			// tolerated: nothing registered for this identifier.
		case dataKindPathing:
			bpd, err := readPathingLayer(r)
			if err != nil {
				return nil, err
			}
			batch.SetData(id, bpd)
		default:
			return nil, fmt.Errorf("serialize: unknown data layer kind %d", kind)
		}
	}
	return batch, nil
}
