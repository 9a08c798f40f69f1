package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRiskMatrix(t *testing.T) {
	m := DefaultRiskMatrix()
	require.NoError(t, m.Validate())

	tests := []struct {
		severity   Severity
		likelihood Likelihood
		want       int
	}{
		{SeverityLow, LikelihoodLow, 1},
		{SeverityMedium, LikelihoodHigh, 6},
		{SeverityHigh, LikelihoodMedium, 6},
		{SeverityCritical, LikelihoodVeryHigh, 16},
	}
	for _, tt := range tests {
		got, err := m.RPN(tt.severity, tt.likelihood)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s x %s", tt.severity, tt.likelihood)
	}
}

func TestRiskMatrixUnknownGrades(t *testing.T) {
	m := DefaultRiskMatrix()

	_, err := m.RPN(Severity("catastrophic"), LikelihoodLow)
	assert.ErrorContains(t, err, "unknown severity")

	_, err = m.RPN(SeverityLow, Likelihood("certain"))
	assert.ErrorContains(t, err, "unknown likelihood")
}

func TestRiskMatrixValidate(t *testing.T) {
	m := DefaultRiskMatrix()
	delete(m.Severity, SeverityCritical)
	assert.ErrorContains(t, m.Validate(), "missing severity")

	m = DefaultRiskMatrix()
	m.Likelihood[LikelihoodHigh] = 0
	assert.ErrorContains(t, m.Validate(), "non-positive weight")
}
