package builder

import (
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// Wizard accumulates a wizard declaration step by step
type Wizard struct {
	onComplete wizard.CompleteFunc
	files      storage.FileStore
	err        error
	name       string
	steps      []*wizard.Step
}

// NewWizard creates a wizard builder with the given name
func NewWizard(name string) *Wizard {
	return &Wizard{name: name}
}

// Step appends a built step. The first build error is retained and
// reported by Build
func (w *Wizard) Step(s *Step) *Wizard {
	res := *w
	step, err := s.Build()
	if err != nil && res.err == nil {
		res.err = err
		return &res
	}
	res.steps = append(append([]*wizard.Step{}, w.steps...), step)
	return &res
}

// OnComplete sets the completion callback
func (w *Wizard) OnComplete(fn wizard.CompleteFunc) *Wizard {
	res := *w
	res.onComplete = fn
	return &res
}

// WithFileStore attaches the store for uploaded file payloads
func (w *Wizard) WithFileStore(fs storage.FileStore) *Wizard {
	res := *w
	res.files = fs
	return &res
}

// Build assembles and validates the wizard declaration
func (w *Wizard) Build() (*wizard.Wizard, error) {
	if w.err != nil {
		return nil, w.err
	}
	var opts []wizard.Option
	if w.files != nil {
		opts = append(opts, wizard.WithFileStore(w.files))
	}
	return wizard.New(w.name, w.steps, w.onComplete, opts...)
}
