package wizard_test

import (
	"errors"
	"testing"

	"github.com/stepwise/formwizard/internal/assert"
	"github.com/stepwise/formwizard/internal/assert/helpers"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

func TestSequenceFiltering(t *testing.T) {
	as := assert.New(t)

	w, err := helpers.NewTestWizard(helpers.NewRecorder())
	as.NoError(err)

	t.Run("personal_plan_skips_company", func(*testing.T) {
		st := api.NewWizardState()
		st.SetStepData("account", helpers.AccountData("personal"))

		seq, err := w.Sequence(st)
		as.NoError(err)
		as.SequenceNames(seq, "account", "confirm")
		as.Equal(2, seq.Count())
		as.False(seq.Contains("company"))
		as.Equal(-1, seq.Index("company"))
	})

	t.Run("business_plan_includes_company", func(*testing.T) {
		st := api.NewWizardState()
		st.SetStepData("account", helpers.AccountData("business"))

		seq, err := w.Sequence(st)
		as.NoError(err)
		as.SequenceNames(seq, "account", "company", "confirm")
		as.Equal(1, seq.Index("company"))
	})

	t.Run("fresh_state_skips_conditionals", func(*testing.T) {
		seq, err := w.Sequence(api.NewWizardState())
		as.NoError(err)
		as.SequenceNames(seq, "account", "confirm")
	})
}

func TestSequenceNavigation(t *testing.T) {
	as := assert.New(t)

	w, err := helpers.NewTestWizard(helpers.NewRecorder())
	as.NoError(err)

	st := api.NewWizardState()
	st.SetStepData("account", helpers.AccountData("business"))

	seq, err := w.Sequence(st)
	as.NoError(err)

	as.Equal(api.Name("account"), seq.First())
	as.Equal(api.Name("confirm"), seq.Last())
	as.Equal(api.Name("company"), seq.Next("account"))
	as.Equal(api.Name("account"), seq.Prev(seq.Next(seq.First())))
	as.Equal(api.Name(""), seq.Next("confirm"))
	as.Equal(api.Name(""), seq.Prev("account"))
	as.Equal(api.Name(""), seq.Next("nonexistent"))
}

func TestSequenceReorderMembership(t *testing.T) {
	as := assert.New(t)

	newStep := func(name api.Name, cond wizard.Condition) *wizard.Step {
		return &wizard.Step{
			Name: name,
			Schema: api.NewSchema(
				"note", &api.FieldSpec{Type: api.FieldString},
			),
			Condition: cond,
		}
	}
	account := newStep("account", nil)
	company := newStep("company",
		wizard.WhenEqual("steps.account.plan", "business"))
	confirm := newStep("confirm", nil)

	rec := helpers.NewRecorder()
	forward, err := wizard.New("reorder",
		[]*wizard.Step{account, company, confirm}, rec.Complete)
	as.NoError(err)
	reversed, err := wizard.New("reorder",
		[]*wizard.Step{confirm, company, account}, rec.Complete)
	as.NoError(err)

	st := api.NewWizardState()
	st.SetStepData("account", api.RawValues{"plan": {"business"}})

	fwd, err := forward.Sequence(st)
	as.NoError(err)
	rev, err := reversed.Sequence(st)
	as.NoError(err)

	// Declaration order changes the sequencing but never which steps
	// are active
	as.SequenceNames(fwd, "account", "company", "confirm")
	as.SequenceNames(rev, "confirm", "company", "account")
	as.Equal(fwd.Count(), rev.Count())
	for _, name := range fwd.Names() {
		as.True(rev.Contains(name))
	}
	as.Equal(api.Name("confirm"), rev.First())
	as.Equal(api.Name("account"), rev.Last())
}

func TestSequenceCurrent(t *testing.T) {
	as := assert.New(t)

	w, err := helpers.NewTestWizard(helpers.NewRecorder())
	as.NoError(err)

	st := api.NewWizardState()
	st.SetStepData("account", helpers.AccountData("business"))
	st.Current = "company"

	seq, err := w.Sequence(st)
	as.NoError(err)
	as.Equal(api.Name("company"), seq.Current(st))

	// When the stored current step drops out of the active set, the
	// session falls back to the first active step
	st.SetStepData("account", helpers.AccountData("personal"))
	seq, err = w.Sequence(st)
	as.NoError(err)
	as.Equal(api.Name("account"), seq.Current(st))
}

func TestActiveStepsConditionError(t *testing.T) {
	as := assert.New(t)

	errBoom := errors.New("boom")
	failing := &wizard.Step{
		Name:   "broken",
		Schema: api.NewSchema("a", &api.FieldSpec{Type: api.FieldString}),
		Condition: wizard.CondFunc(
			func(*api.WizardState) (bool, error) {
				return false, errBoom
			},
		),
	}
	w, err := wizard.New("broken", []*wizard.Step{failing},
		helpers.NewRecorder().Complete)
	as.NoError(err)

	_, err = w.Sequence(api.NewWizardState())
	as.ErrorContains(err, "condition for step broken")
}
