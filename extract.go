package gofire

// NeighborhoodCounts sums, for every bin start in starts, the contact counts
// between that bin and all bins within region base pairs on the same
// chromosome. Self-contacts are excluded. Bins near the chromosome start are
// summed over however many neighbors exist below them; the matrix returns
// zero beyond the last observed bin, so no explicit upper clipping is needed.
// A nil matrix (chromosome absent from the experiment) yields all zeros.
func NeighborhoodCounts(m *ContactMatrix, starts []int, binSize, region int) []float64 {
	counts := make([]float64, len(starts))
	if m == nil {
		return counts
	}
	binNo := region / binSize
	for i, p := range starts {
		total := 0.0
		for k := 1; k <= binNo; k++ {
			if q := p - k*binSize; q >= 0 {
				total += m.At(p, q)
			}
			total += m.At(p, p+k*binSize)
		}
		counts[i] = total
	}
	return counts
}
