package gofire

// usabilityFlags decides, for every bin start in starts, whether the bin may
// enter the model fit. A bin is usable iff
//   - it has a covariate record of its own,
//   - the mean mappability over its neighborhood (center included) is at
//     least minAvgM, and
//   - the fraction of neighbor bins that are themselves bad (M == 0 or no
//     covariate record) is at most maxBadFrac.
//
// Both threshold comparisons are inclusive. Neighbor positions are clipped to
// the coordinate span the covariate table covers on this chromosome; a
// position inside the span with no record counts as a bad neighbor with
// mappability zero.
func usabilityFlags(tab *CovariateTable, chrom string, starts []int, binSize, region int, minAvgM, maxBadFrac float64) []bool {
	flags := make([]bool, len(starts))
	first, last, ok := tab.Span(chrom)
	if !ok {
		return flags
	}
	binNo := region / binSize
	for i, p := range starts {
		center, err := tab.Lookup(chrom, p)
		if err != nil {
			continue
		}
		sumM := center.M
		nBins := 1
		nNeighbors := 0
		nBad := 0
		for k := 1; k <= binNo; k++ {
			for _, q := range [2]int{p - k*binSize, p + k*binSize} {
				if q < first || q > last {
					continue
				}
				nNeighbors++
				nBins++
				cov, err := tab.Lookup(chrom, q)
				if err != nil || cov.M == 0 {
					nBad++
					continue
				}
				sumM += cov.M
			}
		}
		if sumM/float64(nBins) < minAvgM {
			continue
		}
		if nNeighbors > 0 && float64(nBad)/float64(nNeighbors) > maxBadFrac {
			continue
		}
		flags[i] = true
	}
	return flags
}
