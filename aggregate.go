package gofire

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	gn "github.com/pbenner/gonetics"
)

// Result is the combined score table. Rows are genomic bins ordered by
// chromosome (covariate file order) and ascending start; shared covariate
// columns F, GC and M are followed, per experiment n, by the metadata columns
// n_count_neig, n_fire and n_logpvalue. Missing values are NaN.
type Result struct {
	Bins gn.GRanges
	nExp int
}

func countColumn(n int) string {
	return fmt.Sprintf("%d_count_neig", n)
}

func fireColumn(n int) string {
	return fmt.Sprintf("%d_fire", n)
}

func logpColumn(n int) string {
	return fmt.Sprintf("%d_logpvalue", n)
}

// assemble merges the per-unit results into one GRanges-backed table.
func assemble(tab *CovariateTable, chroms []string, startsByChrom map[string][]int, results [][]unitResult, nExp int) *Result {
	nRows := 0
	for _, chrom := range chroms {
		nRows += len(startsByChrom[chrom])
	}

	seqnames := make([]string, 0, nRows)
	from := make([]int, 0, nRows)
	to := make([]int, 0, nRows)
	strand := make([]byte, 0, nRows)
	fs := make([]float64, 0, nRows)
	gcs := make([]float64, 0, nRows)
	ms := make([]float64, 0, nRows)
	counts := make([][]float64, nExp)
	fires := make([][]float64, nExp)
	logps := make([][]float64, nExp)

	for ci, chrom := range chroms {
		for bi, start := range startsByChrom[chrom] {
			seqnames = append(seqnames, chrom)
			from = append(from, start)
			to = append(to, start+tab.BinSize())
			strand = append(strand, '*')
			if cov, err := tab.Lookup(chrom, start); err == nil {
				fs = append(fs, cov.F)
				gcs = append(gcs, cov.GC)
				ms = append(ms, cov.M)
			} else {
				fs = append(fs, math.NaN())
				gcs = append(gcs, math.NaN())
				ms = append(ms, math.NaN())
			}
			for ei := 0; ei < nExp; ei++ {
				res := results[ci][ei]
				counts[ei] = append(counts[ei], res.counts[bi])
				fires[ei] = append(fires[ei], res.fire[bi])
				logps[ei] = append(logps[ei], res.logp[bi])
			}
		}
	}

	bins := gn.NewGRanges(seqnames, from, to, strand)
	bins.AddMeta("F", fs)
	bins.AddMeta("GC", gcs)
	bins.AddMeta("M", ms)
	for ei := 0; ei < nExp; ei++ {
		bins.AddMeta(countColumn(ei), counts[ei])
		bins.AddMeta(fireColumn(ei), fires[ei])
		bins.AddMeta(logpColumn(ei), logps[ei])
	}
	return &Result{Bins: bins, nExp: nExp}
}

// NumExperiments returns the number of experiment column groups.
func (r *Result) NumExperiments() int {
	return r.nExp
}

// Length returns the number of bins in the table.
func (r *Result) Length() int {
	return r.Bins.Length()
}

// NeighborhoodCounts returns the count column of experiment n.
func (r *Result) NeighborhoodCounts(n int) []float64 {
	return r.Bins.GetMeta(countColumn(n)).([]float64)
}

// FireScores returns the fire-score column of experiment n.
func (r *Result) FireScores(n int) []float64 {
	return r.Bins.GetMeta(fireColumn(n)).([]float64)
}

// LogPValues returns the log p-value column of experiment n.
func (r *Result) LogPValues(n int) []float64 {
	return r.Bins.GetMeta(logpColumn(n)).([]float64)
}

func formatValue(v float64, prec int) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteTable writes the result as whitespace-delimited text with a header
// row. Counts are printed as integers, all other floats with four decimals,
// missing values as NA.
func (r *Result) WriteTable(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, "chr start end F GC M")
	for n := 0; n < r.nExp; n++ {
		fmt.Fprintf(bw, " %s %s %s", countColumn(n), fireColumn(n), logpColumn(n))
	}
	fmt.Fprintln(bw)

	fs := r.Bins.GetMeta("F").([]float64)
	gcs := r.Bins.GetMeta("GC").([]float64)
	ms := r.Bins.GetMeta("M").([]float64)
	counts := make([][]float64, r.nExp)
	fires := make([][]float64, r.nExp)
	logps := make([][]float64, r.nExp)
	for n := 0; n < r.nExp; n++ {
		counts[n] = r.NeighborhoodCounts(n)
		fires[n] = r.FireScores(n)
		logps[n] = r.LogPValues(n)
	}

	for i := 0; i < r.Bins.Length(); i++ {
		fmt.Fprintf(bw, "%s %d %d %s %s %s",
			r.Bins.Seqnames[i], r.Bins.Ranges[i].From, r.Bins.Ranges[i].To,
			formatValue(fs[i], 4), formatValue(gcs[i], 4), formatValue(ms[i], 4))
		for n := 0; n < r.nExp; n++ {
			fmt.Fprintf(bw, " %s %s %s",
				formatValue(counts[n][i], 0), formatValue(fires[n][i], 4), formatValue(logps[n][i], 4))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// ExportTable writes the result table to a file.
func (r *Result) ExportTable(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteTable(f)
}
