package wizard_test

import (
	"testing"

	"github.com/stepwise/formwizard/internal/assert"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

func conditionState() *api.WizardState {
	st := api.NewWizardState()
	st.SetStepData("account", api.RawValues{
		"plan":       {"business"},
		"newsletter": {"1"},
		"referrer":   {""},
	})
	st.UpdateExtra(map[string]any{
		"beta":  true,
		"seats": 5,
	})
	return st
}

func TestAlways(t *testing.T) {
	as := assert.New(t)

	ok, err := wizard.Always(true).Evaluate(api.NewWizardState())
	as.NoError(err)
	as.True(ok)

	ok, err = wizard.Always(false).Evaluate(api.NewWizardState())
	as.NoError(err)
	as.False(ok)
}

func TestWhenEqual(t *testing.T) {
	as := assert.New(t)
	st := conditionState()

	tests := []struct {
		name string
		path string
		want string
		res  bool
	}{
		{"match", "steps.account.plan", "business", true},
		{"mismatch", "steps.account.plan", "personal", false},
		{"missing_path", "steps.account.nope", "x", false},
		{"missing_step", "steps.nope.plan", "x", false},
		{"extra_match", "extra.seats", "5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(*testing.T) {
			ok, err := wizard.WhenEqual(tt.path, tt.want).Evaluate(st)
			as.NoError(err)
			as.Equal(tt.res, ok)
		})
	}
}

func TestWhenTruthy(t *testing.T) {
	as := assert.New(t)
	st := conditionState()

	tests := []struct {
		name string
		path string
		res  bool
	}{
		{"numeric_string", "steps.account.newsletter", true},
		{"empty_string", "steps.account.referrer", false},
		{"missing", "steps.account.nope", false},
		{"bool_extra", "extra.beta", true},
		{"number_extra", "extra.seats", true},
		{"string_value", "steps.account.plan", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(*testing.T) {
			ok, err := wizard.WhenTruthy(tt.path).Evaluate(st)
			as.NoError(err)
			as.Equal(tt.res, ok)
		})
	}
}
