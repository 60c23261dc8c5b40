// Package assert wraps testify with wizard-specific assertion helpers
package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/internal/config"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// Wrapper wraps testify assertions with wizard-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// SchemaValid asserts that a schema declaration is valid
func (w *Wrapper) SchemaValid(s *api.Schema) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotEmpty(s.Fields)
}

// SchemaInvalid asserts that a schema declaration is invalid and returns
// the validation error
func (w *Wrapper) SchemaInvalid(s *api.Schema, contains string) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
	return err
}

// CleanOK asserts that raw data passes the schema and returns the values
func (w *Wrapper) CleanOK(
	s *api.Schema, raw api.RawValues, files api.Files,
) api.Values {
	w.Helper()
	values, fieldErrs := s.Clean(raw, files)
	w.Nil(fieldErrs)
	w.NotNil(values)
	return values
}

// CleanFails asserts that raw data fails the schema on the given fields
func (w *Wrapper) CleanFails(
	s *api.Schema, raw api.RawValues, files api.Files, fields ...string,
) api.FieldErrors {
	w.Helper()
	values, fieldErrs := s.Clean(raw, files)
	w.Nil(values)
	w.NotEmpty(fieldErrs)
	for _, f := range fields {
		w.Contains(fieldErrs, f)
	}
	return fieldErrs
}

// OutcomeStatus asserts a submission outcome's status and step
func (w *Wrapper) OutcomeStatus(
	outcome *wizard.SubmitOutcome, status wizard.SubmitStatus, step api.Name,
) {
	w.Helper()
	w.NotNil(outcome)
	w.Equal(status, outcome.Status)
	w.Equal(step, outcome.Step)
}

// SequenceNames asserts the active step names in order
func (w *Wrapper) SequenceNames(seq *wizard.Sequence, names ...api.Name) {
	w.Helper()
	w.Equal(names, seq.Names())
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}
