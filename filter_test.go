package gofire

import (
	"fmt"
	"strings"
	"testing"
)

func uniformTable(t *testing.T, n int, m float64) *CovariateTable {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("chr start end F GC M\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "chr1 %d %d 2000 0.5 %g\n", i*10000, (i+1)*10000, m)
	}
	tab, err := ReadCovariates(strings.NewReader(sb.String()), "test", 10000)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestUsabilityAllGood(t *testing.T) {
	tab := uniformTable(t, 5, 1.0)
	starts := tab.Starts("chr1")
	flags := usabilityFlags(tab, "chr1", starts, 10000, 25000, 0.9, 0.25)
	for i, f := range flags {
		if !f {
			t.Errorf("bin %d should be usable", i)
		}
	}
}

// a neighborhood mean exactly at the threshold is usable, one step below
// is not
func TestUsabilityMeanThresholdInclusive(t *testing.T) {
	at := uniformTable(t, 3, 0.9)
	flags := usabilityFlags(at, "chr1", at.Starts("chr1"), 10000, 10000, 0.9, 1.0)
	if !flags[1] {
		t.Error("mean exactly at threshold should be usable")
	}

	below := uniformTable(t, 3, 0.89)
	flags = usabilityFlags(below, "chr1", below.Starts("chr1"), 10000, 10000, 0.9, 1.0)
	if flags[1] {
		t.Error("mean below threshold should be unusable")
	}
}

func TestUsabilityBadNeighborFraction(t *testing.T) {
	// center at 20000 with four in-span neighbors, one of them unmappable
	text := `chr start end F GC M
chr1 0 10000 2000 0.5 0.0
chr1 10000 20000 2000 0.5 1.0
chr1 20000 30000 2000 0.5 1.0
chr1 30000 40000 2000 0.5 1.0
chr1 40000 50000 2000 0.5 1.0
`
	tab, err := ReadCovariates(strings.NewReader(text), "test", 10000)
	if err != nil {
		t.Fatal(err)
	}
	starts := tab.Starts("chr1")

	// 1/4 bad neighbors, exactly at the threshold: usable
	flags := usabilityFlags(tab, "chr1", starts, 10000, 20000, 0.5, 0.25)
	if !flags[2] {
		t.Error("bad fraction at threshold should be usable")
	}
	// threshold below the bad fraction: unusable
	flags = usabilityFlags(tab, "chr1", starts, 10000, 20000, 0.5, 0.24)
	if flags[2] {
		t.Error("bad fraction above threshold should be unusable")
	}
}

func TestUsabilityMissingNeighborCountsAsBad(t *testing.T) {
	// bin 20000 has no record but lies inside the covered span
	text := `chr start end F GC M
chr1 0 10000 2000 0.5 1.0
chr1 10000 20000 2000 0.5 1.0
chr1 30000 40000 2000 0.5 1.0
`
	tab, err := ReadCovariates(strings.NewReader(text), "test", 10000)
	if err != nil {
		t.Fatal(err)
	}
	// center 10000, neighbors 0, 20000 (missing) and 30000: one of three bad
	flags := usabilityFlags(tab, "chr1", []int{10000}, 10000, 20000, 0.5, 0.25)
	if flags[0] {
		t.Error("missing neighbor above threshold should make bin unusable")
	}
	flags = usabilityFlags(tab, "chr1", []int{10000}, 10000, 20000, 0.5, 0.34)
	if !flags[0] {
		t.Error("missing neighbor within threshold should keep bin usable")
	}
}

func TestUsabilityMissingCenter(t *testing.T) {
	tab := uniformTable(t, 5, 1.0)
	flags := usabilityFlags(tab, "chr1", []int{70000}, 10000, 25000, 0.0, 1.0)
	if flags[0] {
		t.Error("bin without covariates must be unusable")
	}
}

func TestUsabilityUnknownChromosome(t *testing.T) {
	tab := uniformTable(t, 5, 1.0)
	flags := usabilityFlags(tab, "chrX", []int{0}, 10000, 25000, 0.0, 1.0)
	if flags[0] {
		t.Error("bin on unknown chromosome must be unusable")
	}
}
