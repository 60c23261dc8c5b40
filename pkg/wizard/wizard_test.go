package wizard_test

import (
	"context"
	"testing"

	"github.com/stepwise/formwizard/internal/assert"
	"github.com/stepwise/formwizard/internal/assert/helpers"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/wizard"
)

func noComplete(context.Context, *wizard.Completion) error {
	return nil
}

func simpleStep(name api.Name) *wizard.Step {
	return &wizard.Step{
		Name: name,
		Schema: api.NewSchema(
			"value", &api.FieldSpec{Type: api.FieldString},
		),
	}
}

func TestWizardValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid", func(*testing.T) {
		w, err := wizard.New(
			"demo", []*wizard.Step{simpleStep("one")}, noComplete,
		)
		as.NoError(err)
		as.Equal("demo", w.Name)
	})

	tests := []struct {
		build func() (*wizard.Wizard, error)
		err   error
		name  string
	}{
		{
			name: "empty_name",
			build: func() (*wizard.Wizard, error) {
				return wizard.New(
					"", []*wizard.Step{simpleStep("one")}, noComplete,
				)
			},
			err: wizard.ErrWizardNameEmpty,
		},
		{
			name: "no_steps",
			build: func() (*wizard.Wizard, error) {
				return wizard.New("demo", nil, noComplete)
			},
			err: wizard.ErrNoSteps,
		},
		{
			name: "no_complete_func",
			build: func() (*wizard.Wizard, error) {
				return wizard.New(
					"demo", []*wizard.Step{simpleStep("one")}, nil,
				)
			},
			err: wizard.ErrNoCompleteFunc,
		},
		{
			name: "duplicate_step",
			build: func() (*wizard.Wizard, error) {
				return wizard.New("demo", []*wizard.Step{
					simpleStep("one"), simpleStep("one"),
				}, noComplete)
			},
			err: wizard.ErrDuplicateStep,
		},
		{
			name: "reserved_step_name",
			build: func() (*wizard.Wizard, error) {
				return wizard.New("demo", []*wizard.Step{
					simpleStep(wizard.DoneStepName),
				}, noComplete)
			},
			err: wizard.ErrReservedStepName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(*testing.T) {
			_, err := tt.build()
			as.ErrorIs(err, tt.err)
		})
	}
}

func TestWizardFileStorageRequired(t *testing.T) {
	as := assert.New(t)

	fileStep := &wizard.Step{
		Name: "upload",
		Schema: api.NewSchema(
			"doc", &api.FieldSpec{Type: api.FieldFile, Required: true},
		),
	}

	_, err := wizard.New("demo", []*wizard.Step{fileStep}, noComplete)
	as.ErrorIs(err, wizard.ErrNoFileStorage)

	files, err := storage.NewBlobFileStore(
		context.Background(), "mem://", "uploads",
	)
	as.NoError(err)
	defer func() { _ = files.Close() }()

	_, err = wizard.New("demo", []*wizard.Step{fileStep}, noComplete,
		wizard.WithFileStore(files))
	as.NoError(err)
}

func TestStepByName(t *testing.T) {
	as := assert.New(t)

	w, err := helpers.NewTestWizard(helpers.NewRecorder())
	as.NoError(err)

	step, err := w.StepByName("company")
	as.NoError(err)
	as.Equal(api.Name("company"), step.Name)

	_, err = w.StepByName("billing")
	as.ErrorIs(err, wizard.ErrUnknownStep)
}

func TestStepInitialData(t *testing.T) {
	as := assert.New(t)

	step := simpleStep("one")
	as.Nil(step.InitialData())

	step.Initial = api.Values{"value": 42}
	as.Equal("42", step.InitialData().Get("value"))
}
