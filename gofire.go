// Package gofire detects frequently interacting regions (FIREs) from Hi-C
// contact data. For each fixed-size genomic bin it sums the contacts to the
// bin's local neighborhood, fits an expected-count model against the bin's
// mappability, GC content and fragment-density covariates, and reports the
// observed/expected ratio together with an upper-tail log p-value.
package gofire

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/pbenner/threadpool"
	"github.com/sirupsen/logrus"
)

// Config collects the scoring parameters. BinSize must match the resolution
// of the covariate table and of every contact matrix.
type Config struct {
	// BinSize is the bin width in base pairs.
	BinSize int
	// NeighborhoodRegion is the neighborhood half-width in base pairs.
	NeighborhoodRegion int
	// PercThreshold is the maximum fraction of bad neighbor bins allowed
	// around a usable bin (inclusive).
	PercThreshold float64
	// AvgMappabilityThreshold is the minimum mean neighborhood mappability
	// of a usable bin (inclusive).
	AvgMappabilityThreshold float64
	// QuantileNormalize normalizes fire-score columns across experiments.
	// Note that this replaces the raw observed/expected ratios.
	QuantileNormalize bool
	// Threads sizes the worker pool; zero means one worker per CPU.
	Threads int
	// Model overrides the default quasi-Poisson GLM. Implementations must
	// be safe for concurrent Fit calls.
	Model CountModel
}

// DefaultConfig returns a Config with the standard thresholds.
func DefaultConfig(binSize, neighborhoodRegion int) Config {
	return Config{
		BinSize:                 binSize,
		NeighborhoodRegion:      neighborhoodRegion,
		PercThreshold:           0.25,
		AvgMappabilityThreshold: 0.9,
	}
}

func (c Config) model() CountModel {
	if c.Model != nil {
		return c.Model
	}
	return NewGLM()
}

func (c Config) threads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

func (c Config) validate() error {
	if c.BinSize <= 0 {
		return fmt.Errorf("bin size must be positive, got %d", c.BinSize)
	}
	if c.NeighborhoodRegion < 0 {
		return fmt.Errorf("neighborhood region must be non-negative, got %d", c.NeighborhoodRegion)
	}
	if c.PercThreshold < 0 || c.PercThreshold > 1 {
		return fmt.Errorf("perc threshold must be in [0,1], got %g", c.PercThreshold)
	}
	if c.AvgMappabilityThreshold < 0 || c.AvgMappabilityThreshold > 1 {
		return fmt.Errorf("average mappability threshold must be in [0,1], got %g", c.AvgMappabilityThreshold)
	}
	return nil
}

// unitResult holds the per-bin outcome of one chromosome/experiment unit.
// fire and logp are NaN for bins that could not be scored.
type unitResult struct {
	counts []float64
	fire   []float64
	logp   []float64
}

func naSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// scoreChromosome runs extraction, filtering and model fitting for one
// chromosome of one experiment. On InsufficientDataError the neighborhood
// counts are still returned with all scores NA.
func scoreChromosome(tab *CovariateTable, m *ContactMatrix, chrom string, starts []int, cfg Config, model CountModel) (unitResult, error) {
	res := unitResult{
		counts: NeighborhoodCounts(m, starts, cfg.BinSize, cfg.NeighborhoodRegion),
		fire:   naSlice(len(starts)),
		logp:   naSlice(len(starts)),
	}
	flags := usabilityFlags(tab, chrom, starts, cfg.BinSize, cfg.NeighborhoodRegion,
		cfg.AvgMappabilityThreshold, cfg.PercThreshold)

	var fitCovs []Covariates
	var fitCounts []float64
	for i := range starts {
		if !flags[i] {
			continue
		}
		cov, err := tab.Lookup(chrom, starts[i])
		if err != nil {
			continue
		}
		fitCovs = append(fitCovs, cov)
		fitCounts = append(fitCounts, res.counts[i])
	}

	fit, err := model.Fit(fitCovs, fitCounts)
	if err != nil {
		if e, ok := err.(InsufficientDataError); ok {
			e.Chrom = chrom
			err = e
		}
		return res, err
	}

	for i, p := range starts {
		if !flags[i] {
			continue
		}
		cov, err := tab.Lookup(chrom, p)
		if err != nil {
			continue
		}
		mu := fit.Expected(cov)
		res.fire[i] = res.counts[i] / mu
		res.logp[i] = fit.LogPValue(res.counts[i], mu)
	}
	return res, nil
}

// Run scores every chromosome of every experiment and assembles the combined
// result table. Chromosome/experiment units are independent and execute on a
// fixed-size worker pool; a unit that fails with InsufficientDataError is
// reported as NA scores and logged, without aborting sibling units.
func Run(tab *CovariateTable, exps []*Experiment, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if tab.BinSize() != cfg.BinSize {
		return nil, InconsistentBinSizeError{Path: "covariate table", Got: tab.BinSize(), Want: cfg.BinSize}
	}
	for _, exp := range exps {
		for _, m := range exp.Matrices {
			if m.BinSize() != cfg.BinSize {
				return nil, InconsistentBinSizeError{Path: exp.Name, Got: m.BinSize(), Want: cfg.BinSize}
			}
		}
	}

	chroms, startsByChrom := resultRows(tab, exps)

	results := make([][]unitResult, len(chroms))
	for ci := range results {
		results[ci] = make([]unitResult, len(exps))
	}

	model := cfg.model()
	pool := threadpool.New(cfg.threads(), 100*cfg.threads())
	group := pool.NewJobGroup()

	for ci := range chroms {
		for ei := range exps {
			ci, ei := ci, ei
			chrom := chroms[ci]
			pool.AddJob(group, func(pool threadpool.ThreadPool, erf func() error) error {
				res, err := scoreChromosome(tab, exps[ei].Matrices[chrom], chrom, startsByChrom[chrom], cfg, model)
				if err != nil {
					logrus.Warnf("experiment %s: %v; reporting NA scores", exps[ei].Name, err)
				}
				results[ci][ei] = res
				return nil
			})
		}
	}
	pool.Wait(group)

	result := assemble(tab, chroms, startsByChrom, results, len(exps))
	if cfg.QuantileNormalize {
		result.quantileNormalizeFires()
	}
	return result, nil
}

// resultRows fixes the output row set: the covariate table's chromosomes in
// input order, then chromosomes only seen in contact matrices; per
// chromosome, the union of table bins and matrix bins in ascending order.
func resultRows(tab *CovariateTable, exps []*Experiment) ([]string, map[string][]int) {
	var chroms []string
	seen := map[string]bool{}
	for _, chrom := range tab.Chroms() {
		chroms = append(chroms, chrom)
		seen[chrom] = true
	}
	for _, exp := range exps {
		for _, chrom := range exp.Chroms {
			if !seen[chrom] {
				chroms = append(chroms, chrom)
				seen[chrom] = true
			}
		}
	}

	startsByChrom := map[string][]int{}
	for _, chrom := range chroms {
		set := map[int]bool{}
		for _, s := range tab.Starts(chrom) {
			set[s] = true
		}
		for _, exp := range exps {
			if m := exp.Matrices[chrom]; m != nil {
				for _, s := range m.Bins() {
					set[s] = true
				}
			}
		}
		starts := make([]int, 0, len(set))
		for s := range set {
			starts = append(starts, s)
		}
		sort.Ints(starts)
		startsByChrom[chrom] = starts
	}
	return chroms, startsByChrom
}
