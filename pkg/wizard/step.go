package wizard

import (
	"errors"
	"fmt"

	"github.com/stepwise/formwizard/pkg/api"
)

type (
	// InstanceProvider supplies initial form values from an existing
	// record, for wizards that edit rather than create
	InstanceProvider interface {
		FormValues() api.Values
	}

	// Step is one declared unit of a wizard: a named schema with optional
	// initial data, an optional bound instance, and an optional inclusion
	// condition. A nil Condition includes the step unconditionally
	Step struct {
		Schema    *api.Schema
		Condition Condition
		Instance  InstanceProvider
		Initial   api.Values
		Name      api.Name
	}
)

var (
	ErrStepNameEmpty = errors.New("step name empty")
	ErrSchemaNil     = errors.New("step schema nil")
)

// Validate checks the step declaration
func (s *Step) Validate() error {
	if s.Name == "" {
		return ErrStepNameEmpty
	}
	if s.Schema == nil {
		return fmt.Errorf("%w: %s", ErrSchemaNil, s.Name)
	}
	if err := s.Schema.Validate(); err != nil {
		return fmt.Errorf("step %s: %w", s.Name, err)
	}
	return nil
}

// InitialValues merges the bound instance's values under the declared
// initial data. Explicit Initial entries win
func (s *Step) InitialValues() api.Values {
	if s.Instance == nil {
		return s.Initial
	}
	return s.Instance.FormValues().Merge(s.Initial)
}

// InitialData renders the initial values in raw submitted-input shape so
// unvisited steps can prefill their forms
func (s *Step) InitialData() api.RawValues {
	initial := s.InitialValues()
	if len(initial) == 0 {
		return nil
	}
	raw := make(api.RawValues, len(initial))
	for name, value := range initial {
		raw[name] = []string{fmt.Sprintf("%v", value)}
	}
	return raw
}
