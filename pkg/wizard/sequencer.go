package wizard

import (
	"fmt"

	"github.com/stepwise/formwizard/pkg/api"
)

// Sequence is the condition-filtered, order-preserving view of a wizard's
// steps for one evaluation of the state. Boundary lookups return the empty
// Name
type Sequence struct {
	steps []*Step
	index map[api.Name]int
}

// ActiveSteps evaluates each step's condition against st and returns the
// included steps in declaration order
func (w *Wizard) ActiveSteps(st *api.WizardState) ([]*Step, error) {
	var active []*Step
	for _, step := range w.Steps {
		ok, err := evaluateCondition(step.Condition, st)
		if err != nil {
			return nil, fmt.Errorf("condition for step %s: %w", step.Name, err)
		}
		if ok {
			active = append(active, step)
		}
	}
	return active, nil
}

// Sequence builds the active step sequence for st
func (w *Wizard) Sequence(st *api.WizardState) (*Sequence, error) {
	active, err := w.ActiveSteps(st)
	if err != nil {
		return nil, err
	}
	index := make(map[api.Name]int, len(active))
	for i, step := range active {
		index[step.Name] = i
	}
	return &Sequence{steps: active, index: index}, nil
}

// Steps returns the active steps in order
func (s *Sequence) Steps() []*Step {
	return s.steps
}

// Names returns the active step names in order
func (s *Sequence) Names() []api.Name {
	names := make([]api.Name, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name
	}
	return names
}

// Count returns the total number of active steps
func (s *Sequence) Count() int {
	return len(s.steps)
}

// Contains reports whether step is in the active set
func (s *Sequence) Contains(step api.Name) bool {
	_, ok := s.index[step]
	return ok
}

// First returns the name of the first active step
func (s *Sequence) First() api.Name {
	if len(s.steps) == 0 {
		return ""
	}
	return s.steps[0].Name
}

// Last returns the name of the last active step
func (s *Sequence) Last() api.Name {
	if len(s.steps) == 0 {
		return ""
	}
	return s.steps[len(s.steps)-1].Name
}

// Next returns the step after the given one, or empty at the end
func (s *Sequence) Next(step api.Name) api.Name {
	i, ok := s.index[step]
	if !ok || i+1 >= len(s.steps) {
		return ""
	}
	return s.steps[i+1].Name
}

// Prev returns the step before the given one, or empty at the start
func (s *Sequence) Prev(step api.Name) api.Name {
	i, ok := s.index[step]
	if !ok || i == 0 {
		return ""
	}
	return s.steps[i-1].Name
}

// Index returns the zero-based position of step among the active steps,
// or -1 when the step is not active
func (s *Sequence) Index(step api.Name) int {
	i, ok := s.index[step]
	if !ok {
		return -1
	}
	return i
}

// Current resolves the session's current step: the stored one when it is
// still active, otherwise the first active step
func (s *Sequence) Current(st *api.WizardState) api.Name {
	if st.Current != "" && s.Contains(st.Current) {
		return st.Current
	}
	return s.First()
}
