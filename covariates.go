package gofire

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Covariates holds the per-bin normalization covariates: restriction fragment
// or cut-site count (F), GC content fraction (GC) and mappability (M).
type Covariates struct {
	F  float64
	GC float64
	M  float64
}

// CovariateTable maps (chromosome, bin start) to Covariates. It is immutable
// once imported; chromosome order follows the input file.
type CovariateTable struct {
	binSize int
	chroms  []string
	starts  map[string][]int
	covs    map[string]map[int]Covariates
}

var covariateColumns = []string{"chr", "start", "end", "F", "GC", "M"}

// ReadCovariates parses a whitespace-delimited covariate table with header
// columns chr, start, end, F, GC and M. Extra columns are ignored. Every row
// must span exactly binSize base pairs.
func ReadCovariates(r io.Reader, path string, binSize int) (*CovariateTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, MalformedInputError{Path: path, Reason: "empty file"}
	}
	header := strings.Fields(scanner.Text())
	colIdx := map[string]int{}
	for i, name := range header {
		colIdx[name] = i
	}
	var missing []string
	for _, name := range covariateColumns {
		if _, ok := colIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, MalformedInputError{Path: path, Missing: missing}
	}

	tab := &CovariateTable{
		binSize: binSize,
		starts:  map[string][]int{},
		covs:    map[string]map[int]Covariates{},
	}

	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < len(header) {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "row has fewer fields than header"}
		}
		chrom := fields[colIdx["chr"]]
		start, err := strconv.Atoi(fields[colIdx["start"]])
		if err != nil {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "invalid start: " + fields[colIdx["start"]]}
		}
		end, err := strconv.Atoi(fields[colIdx["end"]])
		if err != nil {
			return nil, MalformedInputError{Path: path, Line: line, Reason: "invalid end: " + fields[colIdx["end"]]}
		}
		if end-start != binSize {
			return nil, InconsistentBinSizeError{Path: path, Line: line, Got: end - start, Want: binSize}
		}
		var cov Covariates
		for _, c := range []struct {
			name string
			dst  *float64
		}{{"F", &cov.F}, {"GC", &cov.GC}, {"M", &cov.M}} {
			v, err := strconv.ParseFloat(fields[colIdx[c.name]], 64)
			if err != nil {
				return nil, MalformedInputError{Path: path, Line: line, Reason: "invalid " + c.name + ": " + fields[colIdx[c.name]]}
			}
			*c.dst = v
		}
		if _, ok := tab.covs[chrom]; !ok {
			tab.chroms = append(tab.chroms, chrom)
			tab.covs[chrom] = map[int]Covariates{}
		}
		if _, ok := tab.covs[chrom][start]; !ok {
			tab.starts[chrom] = append(tab.starts[chrom], start)
		}
		tab.covs[chrom][start] = cov
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, chrom := range tab.chroms {
		sort.Ints(tab.starts[chrom])
	}
	return tab, nil
}

// ImportCovariates reads a covariate table from a file.
func ImportCovariates(filename string, binSize int) (*CovariateTable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCovariates(f, filename, binSize)
}

// BinSize returns the bin width of the table.
func (t *CovariateTable) BinSize() int {
	return t.binSize
}

// Chroms returns chromosome names in input order.
func (t *CovariateTable) Chroms() []string {
	return t.chroms
}

// Starts returns the ascending bin start coordinates for a chromosome.
func (t *CovariateTable) Starts(chrom string) []int {
	return t.starts[chrom]
}

// Span returns the first and last bin start covered on a chromosome.
func (t *CovariateTable) Span(chrom string) (first, last int, ok bool) {
	s := t.starts[chrom]
	if len(s) == 0 {
		return 0, 0, false
	}
	return s[0], s[len(s)-1], true
}

// Lookup returns the covariates attached to a bin, or MissingCovariateError
// if the bin has no record.
func (t *CovariateTable) Lookup(chrom string, start int) (Covariates, error) {
	if covs, ok := t.covs[chrom]; ok {
		if cov, ok := covs[start]; ok {
			return cov, nil
		}
	}
	return Covariates{}, MissingCovariateError{Chrom: chrom, Start: start}
}
