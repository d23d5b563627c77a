package gofire

import (
	"math"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// quantileNormalizeFires replaces the fire-score columns with their quantile
// normalization across experiments, so every experiment shares the same score
// distribution. Only rows scored in every experiment take part; all other
// rows keep their NA. Ties map to the rank of their first occurrence, like
// numpy's searchsorted.
func (r *Result) quantileNormalizeFires() {
	if r.nExp < 2 {
		return
	}

	cols := make([][]float64, r.nExp)
	for n := 0; n < r.nExp; n++ {
		cols[n] = r.FireScores(n)
	}

	var rows []int
	for i := 0; i < r.Length(); i++ {
		ok := true
		for n := 0; n < r.nExp; n++ {
			if math.IsNaN(cols[n][i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return
	}

	sorted := make([][]float64, r.nExp)
	ss := make([]series.Series, r.nExp)
	for n := 0; n < r.nExp; n++ {
		sorted[n] = make([]float64, len(rows))
		for k, i := range rows {
			sorted[n][k] = cols[n][i]
		}
		sort.Float64s(sorted[n])
		ss[n] = series.New(sorted[n], series.Float, strconv.Itoa(n))
	}

	// mean of the k-th smallest value across experiments
	means := dataframe.New(ss...).Rapply(func(row series.Series) series.Series {
		return series.Floats(row.Mean())
	}).Col("X0").Float()

	for n := 0; n < r.nExp; n++ {
		for _, i := range rows {
			pos := sort.SearchFloat64s(sorted[n], cols[n][i])
			cols[n][i] = means[pos]
		}
	}
}
