// Command probe-bake lays out a regular probe grid inside a shoebox room,
// builds its visibility graph, bakes the all-pairs shortest-path table,
// and reports timing/coverage stats to stdout, adapting cmd/piano-fit-ir's
// flag/progress-report conventions to this module's probe pipeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/pathdata"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

func main() {
	roomSize := flag.Float64("room-size", 10, "Half-extent of the shoebox room")
	spacing := flag.Float64("spacing", 2.0, "Probe grid spacing in meters")
	probeRadius := flag.Float64("probe-radius", 1.5, "Probe influence-sphere radius")
	pathRange := flag.Float64("path-range", 50, "Maximum path length to bake")
	downWeight := flag.Float64("down-weight", 0.3, "Fraction of visibility samples biased downward")
	flag.Parse()

	sc := shoeboxRoom(float32(*roomSize))
	probes := gridProbes(float32(*roomSize), float32(*spacing), float32(*probeRadius))
	if len(probes) == 0 {
		fmt.Fprintln(os.Stderr, "probe-bake: grid produced zero probes, check --spacing/--room-size")
		os.Exit(1)
	}

	vcfg := visibility.DefaultBuildConfig()
	if *downWeight > 0 {
		vcfg.Asymmetric = true
		vcfg.DownWeight = *downWeight
	}

	start := time.Now()
	graph := visibility.Build(probes, sc, vcfg)
	buildElapsed := time.Since(start)

	start = time.Now()
	baked := pathdata.Bake(probes, graph, float32(*pathRange))
	bakeElapsed := time.Since(start)

	edgeCount := 0
	for _, row := range graph.Edges {
		edgeCount += len(row)
	}

	reachable, total := coverage(baked, len(probes))

	fmt.Printf("Probes: %d\n", len(probes))
	fmt.Printf("Visibility edges: %d (build: %s)\n", edgeCount, buildElapsed)
	fmt.Printf("Symmetric: %v\n", visibility.Symmetric(graph))
	fmt.Printf("Unique sound paths: %d (bake: %s)\n", len(baked.UniqueSoundPaths), bakeElapsed)
	fmt.Printf("Reachable pairs: %d / %d (%.1f%%)\n", reachable, total, 100*float64(reachable)/float64(total))
}

// coverage counts how many ordered probe pairs resolve to a valid baked
// path, out of every pair including i==j.
func coverage(baked *pathdata.BakedPathData, n int) (reachable, total int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			total++
			if baked.LookupShortestPath(i, j).FirstProbe >= 0 {
				reachable++
			}
		}
	}
	return reachable, total
}

func gridProbes(halfExtent, spacing, radius float32) []probe.Probe {
	if spacing <= 0 {
		return nil
	}
	var probes []probe.Probe
	for x := -halfExtent + spacing/2; x < halfExtent; x += spacing {
		for z := -halfExtent + spacing/2; z < halfExtent; z += spacing {
			probes = append(probes, probe.NewProbe(geom.NewVector3(x, 0, z), radius))
		}
	}
	return probes
}

func shoeboxRoom(halfExtent float32) *scene.Scene {
	h := halfExtent
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.NewVector3(-h, -h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, -h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, -h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, -h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, h, h), 1),
	}
	quad := func(a, b, c, d int32) []geom.Triangle {
		return []geom.Triangle{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
	}
	var tris []geom.Triangle
	tris = append(tris, quad(0, 1, 2, 3)...)
	tris = append(tris, quad(7, 6, 5, 4)...)
	tris = append(tris, quad(0, 4, 5, 1)...)
	tris = append(tris, quad(3, 2, 6, 7)...)
	tris = append(tris, quad(0, 3, 7, 4)...)
	tris = append(tris, quad(1, 5, 6, 2)...)

	mesh := geom.NewMesh(verts, tris, make([]int32, len(tris)))
	sc := scene.New()
	sc.CreateStaticMesh(mesh, []geom.Material{geom.DefaultMaterial()})
	sc.Commit()
	return sc
}
