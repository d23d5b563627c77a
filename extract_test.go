package gofire

import (
	"strings"
	"testing"
)

func exampleMatrix(t *testing.T) *ContactMatrix {
	t.Helper()
	exp, err := ReadContactMatrix(strings.NewReader(contactText), "test", "exp0", 10000)
	if err != nil {
		t.Fatal(err)
	}
	return exp.Matrices["chr1"]
}

func TestNeighborhoodCounts(t *testing.T) {
	m := exampleMatrix(t)
	starts := []int{0, 10000, 20000, 30000, 40000}

	counts := NeighborhoodCounts(m, starts, 10000, 25000)
	want := []float64{100, 150, 130, 140, 60}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("count[%d]: got %g, want %g", i, counts[i], want[i])
		}
	}
}

// an entry stored once must not be counted twice when both anchors are
// inside each other's neighborhood
func TestNeighborhoodCountsNoDoubleCounting(t *testing.T) {
	m := NewContactMatrix("chr1", 10000)
	m.Add(0, 10000, 100)
	counts := NeighborhoodCounts(m, []int{0, 10000}, 10000, 10000)
	if counts[0] != 100 || counts[1] != 100 {
		t.Errorf("got %v, want [100 100]", counts)
	}
}

func TestNeighborhoodCountsExcludesSelf(t *testing.T) {
	m := NewContactMatrix("chr1", 10000)
	m.Add(10000, 10000, 42)
	m.Add(10000, 20000, 5)
	counts := NeighborhoodCounts(m, []int{10000}, 10000, 10000)
	if counts[0] != 5 {
		t.Errorf("self-contact included: got %g, want 5", counts[0])
	}
}

func TestNeighborhoodCountsMonotoneInRegion(t *testing.T) {
	m := exampleMatrix(t)
	starts := []int{20000}
	prev := -1.0
	for _, region := range []int{10000, 20000, 30000, 40000} {
		c := NeighborhoodCounts(m, starts, 10000, region)[0]
		if c < prev {
			t.Errorf("count decreased from %g to %g at region %d", prev, c, region)
		}
		prev = c
	}
}

func TestNeighborhoodCountsAbsentBin(t *testing.T) {
	m := exampleMatrix(t)
	counts := NeighborhoodCounts(m, []int{500000}, 10000, 25000)
	if counts[0] != 0 {
		t.Errorf("absent bin: got %g, want 0", counts[0])
	}
}

func TestNeighborhoodCountsNilMatrix(t *testing.T) {
	counts := NeighborhoodCounts(nil, []int{0, 10000}, 10000, 25000)
	for i, c := range counts {
		if c != 0 {
			t.Errorf("count[%d]: got %g, want 0", i, c)
		}
	}
}
