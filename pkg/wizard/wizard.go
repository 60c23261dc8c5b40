// Package wizard implements the multi-step form wizard core: step
// declarations, the sequencer that orders the active step set, and the
// session controller that validates submissions and gates completion
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/util"
)

type (
	// Completion carries the validated results of every active step once
	// the completion gate has passed
	Completion struct {
		Wizard string
		Merged api.Values
		Steps  []StepData
	}

	// StepData is one step's validated contribution to a completion
	StepData struct {
		Values api.Values
		Files  api.Files
		Name   api.Name
	}

	// CompleteFunc is invoked exactly once per session, after every active
	// step has revalidated. Returning an error aborts the state reset so
	// the submission can be retried
	CompleteFunc func(context.Context, *Completion) error

	// Wizard declares an ordered sequence of steps and the callback to
	// invoke when all of them validate. Files is required whenever any
	// step schema declares file fields
	Wizard struct {
		OnComplete CompleteFunc
		Files      storage.FileStore
		Name       string
		Steps      []*Step
	}
)

// DoneStepName is reserved for the completion view in named-step URLs
const DoneStepName = api.Name("done")

var (
	ErrWizardNameEmpty  = errors.New("wizard name empty")
	ErrNoSteps          = errors.New("at least one step is needed")
	ErrDuplicateStep    = errors.New("duplicate step name")
	ErrReservedStepName = errors.New("step name is reserved")
	ErrNoCompleteFunc   = errors.New("completion callback missing")
	ErrUnknownStep      = errors.New("unknown step")

	// ErrNoFileStorage is the configuration error raised when a step
	// declares file fields but the wizard has no file store
	ErrNoFileStorage = errors.New(
		"wizard with file fields requires file storage",
	)
)

// New creates a wizard and validates its declaration
func New(
	name string, steps []*Step, onComplete CompleteFunc, opts ...Option,
) (*Wizard, error) {
	w := &Wizard{
		Name:       name,
		Steps:      steps,
		OnComplete: onComplete,
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Option customizes a wizard declaration
type Option func(*Wizard)

// WithFileStore attaches the store that holds uploaded file payloads
func WithFileStore(fs storage.FileStore) Option {
	return func(w *Wizard) {
		w.Files = fs
	}
}

// Validate checks the whole wizard declaration, including the file-storage
// configuration requirement
func (w *Wizard) Validate() error {
	if w.Name == "" {
		return ErrWizardNameEmpty
	}
	if len(w.Steps) == 0 {
		return ErrNoSteps
	}
	if w.OnComplete == nil {
		return ErrNoCompleteFunc
	}

	seen := util.Set[api.Name]{}
	for _, step := range w.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
		if step.Name == DoneStepName {
			return fmt.Errorf("%w: %s", ErrReservedStepName, step.Name)
		}
		if seen.Contains(step.Name) {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, step.Name)
		}
		seen.Add(step.Name)

		if step.Schema.HasFileFields() && w.Files == nil {
			return fmt.Errorf("%w: step %s", ErrNoFileStorage, step.Name)
		}
	}
	return nil
}

// StepByName returns the declared step with the given name
func (w *Wizard) StepByName(name api.Name) (*Step, error) {
	for _, step := range w.Steps {
		if step.Name == name {
			return step, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStep, name)
}
