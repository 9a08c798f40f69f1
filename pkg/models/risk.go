package models

import "fmt"

// RiskMatrix maps severity and likelihood grades to the ordinal
// weights used to compute a hazard's risk priority number. The scale
// is configuration, not code: callers construct (or load) a matrix and
// inject it wherever RPN is computed, so deployments can adopt their
// own scoring standard without a rebuild.
type RiskMatrix struct {
	Severity   map[Severity]int   `json:"severity"`
	Likelihood map[Likelihood]int `json:"likelihood"`
}

// DefaultRiskMatrix returns the 1..4 ordinal scale shipped as the
// default configuration.
func DefaultRiskMatrix() RiskMatrix {
	return RiskMatrix{
		Severity: map[Severity]int{
			SeverityLow:      1,
			SeverityMedium:   2,
			SeverityHigh:     3,
			SeverityCritical: 4,
		},
		Likelihood: map[Likelihood]int{
			LikelihoodLow:      1,
			LikelihoodMedium:   2,
			LikelihoodHigh:     3,
			LikelihoodVeryHigh: 4,
		},
	}
}

// Validate checks that every severity and likelihood grade has a
// positive weight. A matrix missing a grade would silently score
// hazards as zero, so incomplete matrices are rejected up front.
func (m RiskMatrix) Validate() error {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		w, ok := m.Severity[s]
		if !ok {
			return fmt.Errorf("risk matrix missing severity %q", s)
		}
		if w <= 0 {
			return fmt.Errorf("risk matrix severity %q has non-positive weight %d", s, w)
		}
	}
	for _, l := range []Likelihood{LikelihoodLow, LikelihoodMedium, LikelihoodHigh, LikelihoodVeryHigh} {
		w, ok := m.Likelihood[l]
		if !ok {
			return fmt.Errorf("risk matrix missing likelihood %q", l)
		}
		if w <= 0 {
			return fmt.Errorf("risk matrix likelihood %q has non-positive weight %d", l, w)
		}
	}
	return nil
}

// RPN computes the risk priority number for a severity/likelihood
// pair. Unknown grades return an error rather than a guessed score.
func (m RiskMatrix) RPN(s Severity, l Likelihood) (int, error) {
	sw, ok := m.Severity[s]
	if !ok {
		return 0, fmt.Errorf("unknown severity %q", s)
	}
	lw, ok := m.Likelihood[l]
	if !ok {
		return 0, fmt.Errorf("unknown likelihood %q", l)
	}
	return sw * lw, nil
}
