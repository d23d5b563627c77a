package gofire

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// CountModel fits an expected-count model from covariates and observed
// neighborhood counts of the usable bins.
type CountModel interface {
	Fit(covs []Covariates, counts []float64) (CountFit, error)
}

// CountFit is a fitted count model. Expected returns the null-model
// neighborhood count for a bin; LogPValue the natural log of the upper-tail
// probability P(X >= observed) at the fitted mean.
type CountFit interface {
	Expected(cov Covariates) float64
	LogPValue(observed, mu float64) float64
}

// GLM is a log-link count regression count ~ F + GC + M, fitted by
// iteratively reweighted least squares. With Overdispersed set, the Pearson
// dispersion is estimated after the fit (quasi-Poisson) and upper tails are
// taken from a negative binomial whenever the dispersion exceeds one;
// otherwise tails are plain Poisson.
type GLM struct {
	MaxIter       int
	Tol           float64
	Overdispersed bool
}

// NewGLM returns the default model: Poisson regression with quasi-Poisson
// dispersion handling.
func NewGLM() *GLM {
	return &GLM{MaxIter: 50, Tol: 1e-10, Overdispersed: true}
}

// NewPoissonGLM returns a pure Poisson model with dispersion fixed at one.
func NewPoissonGLM() *GLM {
	return &GLM{MaxIter: 50, Tol: 1e-10}
}

const glmParams = 4 // intercept, F, GC, M

// minimum usable bins for an identifiable fit
const minFitBins = glmParams + 1

// etaMax bounds the linear predictor to keep exp() finite.
const etaMax = 30.0

type glmFit struct {
	beta       [glmParams]float64
	dispersion float64
}

// Fit estimates the regression coefficients on the usable bins. The weighted
// least squares step is solved through a rank-truncated SVD so degenerate
// designs (for instance constant covariates) still yield a deterministic
// minimum-norm solution.
func (g *GLM) Fit(covs []Covariates, counts []float64) (CountFit, error) {
	n := len(counts)
	if n != len(covs) {
		return nil, MalformedInputError{Reason: "covariate and count lengths differ"}
	}
	if n < minFitBins {
		return nil, InsufficientDataError{Usable: n, Required: minFitBins}
	}

	x := mat.NewDense(n, glmParams, nil)
	for i, cov := range covs {
		x.Set(i, 0, 1)
		x.Set(i, 1, cov.F)
		x.Set(i, 2, cov.GC)
		x.Set(i, 3, cov.M)
	}

	eta := make([]float64, n)
	mu := make([]float64, n)
	for i, y := range counts {
		mu[i] = y + 0.5
		eta[i] = math.Log(mu[i])
	}

	a := mat.NewDense(n, glmParams, nil)
	z := mat.NewVecDense(n, nil)
	beta := mat.NewVecDense(glmParams, nil)
	rank := glmParams

	for iter := 0; iter < g.MaxIter; iter++ {
		for i := 0; i < n; i++ {
			w := math.Sqrt(mu[i])
			for j := 0; j < glmParams; j++ {
				a.Set(i, j, w*x.At(i, j))
			}
			z.SetVec(i, w*(eta[i]+(counts[i]-mu[i])/mu[i]))
		}

		var svd mat.SVD
		if !svd.Factorize(a, mat.SVDThin) {
			return nil, InsufficientDataError{Usable: n, Required: minFitBins}
		}
		sv := svd.Values(nil)
		rank = 0
		for _, s := range sv {
			if s > 1e-10*sv[0] {
				rank++
			}
		}
		if rank == 0 {
			return nil, InsufficientDataError{Usable: n, Required: minFitBins}
		}
		svd.SolveVecTo(beta, z, rank)

		delta := 0.0
		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < glmParams; j++ {
				e += x.At(i, j) * beta.AtVec(j)
			}
			e = math.Max(-etaMax, math.Min(etaMax, e))
			if d := math.Abs(e - eta[i]); d > delta {
				delta = d
			}
			eta[i] = e
			mu[i] = math.Exp(e)
		}
		if delta < g.Tol {
			break
		}
	}

	fit := glmFit{dispersion: 1}
	for j := 0; j < glmParams; j++ {
		b := beta.AtVec(j)
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, InsufficientDataError{Usable: n, Required: minFitBins}
		}
		fit.beta[j] = b
	}

	if g.Overdispersed {
		pearson := 0.0
		for i := 0; i < n; i++ {
			r := counts[i] - mu[i]
			pearson += r * r / mu[i]
		}
		dof := n - rank
		if dof < 1 {
			dof = 1
		}
		fit.dispersion = pearson / float64(dof)
	}
	return fit, nil
}

// Expected returns exp(b0 + b1*F + b2*GC + b3*M).
func (f glmFit) Expected(cov Covariates) float64 {
	eta := f.beta[0] + f.beta[1]*cov.F + f.beta[2]*cov.GC + f.beta[3]*cov.M
	eta = math.Max(-etaMax, math.Min(etaMax, eta))
	return math.Exp(eta)
}

// Dispersion returns the Pearson dispersion estimate (1 for a pure Poisson
// fit).
func (f glmFit) Dispersion() float64 {
	return f.dispersion
}

// smallest tail still trusted before switching to the series expansion
const minTail = 1e-290

// LogPValue returns ln P(X >= observed) under the fitted count distribution
// with mean mu. Always <= 0; an observation of zero yields exactly zero.
func (f glmFit) LogPValue(observed, mu float64) float64 {
	k := math.Round(observed)
	if k <= 0 || mu <= 0 {
		return 0
	}
	if f.dispersion <= 1+1e-8 {
		// P(X >= k) = 1 - CDF(k-1)
		tail := distuv.Poisson{Lambda: mu}.Survival(k - 1)
		if tail > minTail {
			return math.Min(math.Log(tail), 0)
		}
		return poissonLogTail(k, mu)
	}
	// negative binomial with matching mean and variance dispersion*mu
	r := mu / (f.dispersion - 1)
	q := r / (r + mu)
	tail := mathext.RegIncBeta(k, r, 1-q)
	if tail > minTail {
		return math.Min(math.Log(tail), 0)
	}
	return nbLogTail(k, r, q)
}

// poissonLogTail computes ln P(X >= k) for a Poisson with mean mu through the
// series P(X >= k) = pmf(k) * (1 + mu/(k+1) + mu^2/((k+1)(k+2)) + ...),
// which converges quickly in the deep-tail regime k >> mu where the direct
// survival function underflows.
func poissonLogTail(k, mu float64) float64 {
	logPmf := k*math.Log(mu) - mu - lgamma(k+1)
	sum, term := 1.0, 1.0
	for i := 1.0; i < 1e6; i++ {
		term *= mu / (k + i)
		sum += term
		if term < 1e-17*sum {
			break
		}
	}
	return math.Min(logPmf+math.Log(sum), 0)
}

// nbLogTail is the analogous series for a negative binomial with size r and
// success probability q; the term ratio is bounded by 1-q so the series
// always converges.
func nbLogTail(k, r, q float64) float64 {
	logPmf := lgamma(k+r) - lgamma(k+1) - lgamma(r) + r*math.Log(q) + k*math.Log(1-q)
	sum, term := 1.0, 1.0
	for i := 0.0; i < 1e6; i++ {
		term *= (k + i + r) / (k + i + 1) * (1 - q)
		sum += term
		if term < 1e-17*sum {
			break
		}
	}
	return math.Min(logPmf+math.Log(sum), 0)
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
