package geom

import "testing"

func TestCoordinateSpaceFromAheadIsOrthonormal(t *testing.T) {
	cs := NewCoordinateSpaceFromAhead(Vector3{}, Vector3{1, 2, 3})
	if d := cs.Right.Dot(cs.Up); d > 1e-5 || d < -1e-5 {
		t.Fatalf("right/up not orthogonal: %v", d)
	}
	if d := cs.Right.Dot(cs.Ahead); d > 1e-5 || d < -1e-5 {
		t.Fatalf("right/ahead not orthogonal: %v", d)
	}
	if l := cs.Right.Length(); l < 0.999 || l > 1.001 {
		t.Fatalf("right not unit length: %v", l)
	}
}

func TestCoordinateSpaceFromAheadUp(t *testing.T) {
	cs := NewCoordinateSpaceFromAheadUp(Vector3{}, Vector3{0, 0, 1}, Vector3{0, 1, 0})
	want := Vector3{0, 0, 1}.Cross(Vector3{0, 1, 0}).Normalized()
	if cs.Right.Distance(want) > 1e-5 {
		t.Fatalf("right = %v, want %v", cs.Right, want)
	}
}

func TestMatrixInverseRoundTrip(t *testing.T) {
	cs := NewCoordinateSpaceFromAhead(Vector3{1, 2, 3}, Vector3{0.3, 0.1, 0.9})
	m := cs.ToWorldMatrix()
	inv := m.Inverse()
	p := Vector3{5, -2, 7}
	world := m.TransformPoint(p)
	back := inv.TransformPoint(world)
	if back.Distance(p) > 1e-3 {
		t.Fatalf("round trip failed: got %v want %v", back, p)
	}
}

func TestConvertHandednessNegatesZ(t *testing.T) {
	v := ConvertHandedness(Vector3{1, 2, 3})
	if v.X != 1 || v.Y != 2 || v.Z != -3 {
		t.Fatalf("unexpected %v", v)
	}
}

func TestBoxContainment(t *testing.T) {
	parent := Box{Min: Vector3{0, 0, 0}, Max: Vector3{10, 10, 10}}
	child := Box{Min: Vector3{1, 1, 1}, Max: Vector3{2, 2, 2}}
	if !parent.Contains(child) {
		t.Fatalf("expected parent to contain child")
	}
	if parent.Contains(Box{Min: Vector3{-1, 0, 0}, Max: Vector3{5, 5, 5}}) {
		t.Fatalf("parent should not contain box extending outside")
	}
}

func TestMaterialClamping(t *testing.T) {
	m := Material{TransmissionLow: 1.5}
	if got := m.Transmission(0); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}
