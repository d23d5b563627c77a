package gofire

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ContactMatrix is the sparse intra-chromosomal contact map of one experiment
// on one chromosome. Entries are stored once on the upper triangle, keyed by
// bin index, so a symmetric pair is never counted twice.
type ContactMatrix struct {
	chrom   string
	binSize int
	counts  map[int64]float64
	binSet  map[int]bool
	bins    []int
}

// NewContactMatrix returns an empty matrix for one chromosome.
func NewContactMatrix(chrom string, binSize int) *ContactMatrix {
	return &ContactMatrix{
		chrom:   chrom,
		binSize: binSize,
		counts:  map[int64]float64{},
		binSet:  map[int]bool{},
	}
}

// pairKey packs two bin indices into a single canonical key, smaller index
// first.
func pairKey(i, j int) int64 {
	if i > j {
		i, j = j, i
	}
	return int64(i)<<32 | int64(j)
}

// Chrom returns the chromosome this matrix belongs to.
func (m *ContactMatrix) Chrom() string {
	return m.chrom
}

// BinSize returns the matrix resolution in base pairs.
func (m *ContactMatrix) BinSize() int {
	return m.binSize
}

// Add accumulates a contact count between the bins starting at start1 and
// start2. Self-contacts are kept in the matrix; the extractor skips them.
func (m *ContactMatrix) Add(start1, start2 int, count float64) {
	if count <= 0 {
		return
	}
	i, j := start1/m.binSize, start2/m.binSize
	m.counts[pairKey(i, j)] += count
	if !m.binSet[start1] {
		m.binSet[start1] = true
		m.bins = nil
	}
	if !m.binSet[start2] {
		m.binSet[start2] = true
		m.bins = nil
	}
}

// At returns the contact count between two bins, querying either orientation.
func (m *ContactMatrix) At(start1, start2 int) float64 {
	return m.counts[pairKey(start1/m.binSize, start2/m.binSize)]
}

// Bins returns the ascending start coordinates of all bins with at least one
// contact.
func (m *ContactMatrix) Bins() []int {
	if m.bins == nil {
		m.bins = make([]int, 0, len(m.binSet))
		for s := range m.binSet {
			m.bins = append(m.bins, s)
		}
		sort.Ints(m.bins)
	}
	return m.bins
}

// Experiment is the genome-wide contact data of one Hi-C experiment, split
// per chromosome.
type Experiment struct {
	Name     string
	Chroms   []string
	Matrices map[string]*ContactMatrix
}

// ReadContactMatrix parses a sparse genome-wide contact dump in the
// seven-column layout written by `cooler dump --join`:
//
//	chrom1 start1 end1 chrom2 start2 end2 count
//
// Inter-chromosomal entries are dropped. Both anchors of every row must span
// exactly binSize base pairs.
func ReadContactMatrix(r io.Reader, path, name string, binSize int) (*Experiment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	exp := &Experiment{Name: name, Matrices: map[string]*ContactMatrix{}}

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 7 {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "expected 7 columns: chrom1 start1 end1 chrom2 start2 end2 count"}
		}
		chrom1 := fields[0]
		chrom2 := fields[3]
		if chrom1 != chrom2 {
			// cis contacts only
			continue
		}
		var coord [4]int
		for i, f := range []string{fields[1], fields[2], fields[4], fields[5]} {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, MalformedInputError{Path: path, Line: line, Reason: "invalid coordinate: " + f}
			}
			coord[i] = v
		}
		if coord[1]-coord[0] != binSize {
			return nil, InconsistentBinSizeError{Path: path, Line: line, Got: coord[1] - coord[0], Want: binSize}
		}
		if coord[3]-coord[2] != binSize {
			return nil, InconsistentBinSizeError{Path: path, Line: line, Got: coord[3] - coord[2], Want: binSize}
		}
		count, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "invalid count: " + fields[6]}
		}
		if count < 0 {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "negative count: " + fields[6]}
		}
		mat, ok := exp.Matrices[chrom1]
		if !ok {
			mat = NewContactMatrix(chrom1, binSize)
			exp.Matrices[chrom1] = mat
			exp.Chroms = append(exp.Chroms, chrom1)
		}
		mat.Add(coord[0], coord[2], count)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return exp, nil
}

// ImportContactMatrix reads an experiment's contact dump from a file. The
// experiment name defaults to the file name.
func ImportContactMatrix(filename string, binSize int) (*Experiment, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadContactMatrix(f, filename, filename, binSize)
}
