package picture

import "fmt"

// Equal reports whether every plane of a matches the corresponding plane of b
// sample for sample. Planes of different length never match.
func Equal(a, b *Picture) bool {
	_, differs := FirstMismatch(a, b)
	return !differs
}

// Mismatch describes where two pictures first diverge.
type Mismatch struct {
	Plane int
	// Index is the sample offset inside the plane, -1 for a length mismatch.
	Index int
	A     int
	B     int
}

func (m Mismatch) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("plane %d length %d != %d", m.Plane, m.A, m.B)
	}
	return fmt.Sprintf("plane %d sample %d: %d != %d", m.Plane, m.Index, m.A, m.B)
}

// FirstMismatch returns the first difference between a and b in plane order.
func FirstMismatch(a, b *Picture) (Mismatch, bool) {
	if len(a.Planes) != len(b.Planes) {
		return Mismatch{Plane: -1, Index: -1, A: len(a.Planes), B: len(b.Planes)}, true
	}

	for i := range a.Planes {
		pa, pb := a.Planes[i], b.Planes[i]
		if len(pa) != len(pb) {
			return Mismatch{Plane: i, Index: -1, A: len(pa), B: len(pb)}, true
		}
		for j := range pa {
			if pa[j] != pb[j] {
				return Mismatch{Plane: i, Index: j, A: int(pa[j]), B: int(pb[j])}, true
			}
		}
	}

	return Mismatch{}, false
}
