package gofire

import (
	"fmt"
	"strings"
)

// MalformedInputError reports an input file that cannot be interpreted,
// typically a covariate table missing one of the required columns. It is
// fatal: nothing is scored when it occurs.
type MalformedInputError struct {
	Path    string
	Line    int
	Missing []string
	Reason  string
}

func (e MalformedInputError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// InconsistentBinSizeError reports a bin width that does not match the
// configured resolution. Fatal, like MalformedInputError.
type InconsistentBinSizeError struct {
	Path string
	Line int
	Got  int
	Want int
}

func (e InconsistentBinSizeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: bin size is %d, expected %d", e.Path, e.Line, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: bin size is %d, expected %d", e.Path, e.Got, e.Want)
}

// InsufficientDataError reports a chromosome/experiment pair with too few
// usable bins to fit the count model. It is recovered locally: the affected
// bins get NA scores and sibling units keep running.
type InsufficientDataError struct {
	Chrom    string
	Usable   int
	Required int
}

func (e InsufficientDataError) Error() string {
	if e.Chrom != "" {
		return fmt.Sprintf("%s: %d usable bins, need at least %d to fit model", e.Chrom, e.Usable, e.Required)
	}
	return fmt.Sprintf("%d usable bins, need at least %d to fit model", e.Usable, e.Required)
}

// MissingCovariateError reports a bin without mappability data. Recovered
// locally as a permanent NA for that bin.
type MissingCovariateError struct {
	Chrom string
	Start int
}

func (e MissingCovariateError) Error() string {
	return fmt.Sprintf("no covariates for bin %s:%d", e.Chrom, e.Start)
}
