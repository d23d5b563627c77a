package gofire

import (
	"errors"
	"strings"
	"testing"
)

const contactText = `chr1 0 10000 chr1 10000 20000 100
chr1 10000 20000 chr1 20000 30000 50
chr1 20000 30000 chr1 30000 40000 80
chr1 30000 40000 chr1 40000 50000 60
chr1 0 10000 chr2 0 10000 999
chr2 0 10000 chr2 10000 20000 7
`

func TestReadContactMatrix(t *testing.T) {
	exp, err := ReadContactMatrix(strings.NewReader(contactText), "test", "exp0", 10000)
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Chroms) != 2 || exp.Chroms[0] != "chr1" || exp.Chroms[1] != "chr2" {
		t.Errorf("unexpected chromosomes: %v", exp.Chroms)
	}
	m := exp.Matrices["chr1"]
	if m == nil {
		t.Fatal("no chr1 matrix")
	}
	if c := m.At(0, 10000); c != 100 {
		t.Errorf("At(0,10000): got %g, want 100", c)
	}
	// symmetric query
	if c := m.At(10000, 0); c != 100 {
		t.Errorf("At(10000,0): got %g, want 100", c)
	}
	// trans entry must be dropped
	if c := m.At(0, 0); c != 0 {
		t.Errorf("At(0,0): got %g, want 0", c)
	}
	bins := m.Bins()
	if len(bins) != 5 || bins[0] != 0 || bins[4] != 40000 {
		t.Errorf("unexpected bins: %v", bins)
	}
}

func TestContactMatrixAccumulates(t *testing.T) {
	m := NewContactMatrix("chr1", 10000)
	m.Add(0, 10000, 3)
	m.Add(10000, 0, 4)
	if c := m.At(0, 10000); c != 7 {
		t.Errorf("got %g, want 7", c)
	}
}

func TestContactMatrixIgnoresZeroCounts(t *testing.T) {
	m := NewContactMatrix("chr1", 10000)
	m.Add(0, 10000, 0)
	if len(m.Bins()) != 0 {
		t.Errorf("zero-count entry should not register bins: %v", m.Bins())
	}
}

func TestReadContactMatrixBinSizeMismatch(t *testing.T) {
	text := "chr1 0 15000 chr1 15000 30000 5\n"
	_, err := ReadContactMatrix(strings.NewReader(text), "test", "exp0", 10000)
	var berr InconsistentBinSizeError
	if !errors.As(err, &berr) {
		t.Fatalf("expected InconsistentBinSizeError, got %v", err)
	}
}

func TestReadContactMatrixMalformed(t *testing.T) {
	text := "chr1 0 10000 chr1 10000\n"
	_, err := ReadContactMatrix(strings.NewReader(text), "test", "exp0", 10000)
	var merr MalformedInputError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}
