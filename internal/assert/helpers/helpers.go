// Package helpers provides shared fixtures for wizard and server tests
package helpers

import (
	"context"
	"sync"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/builder"
	"github.com/stepwise/formwizard/pkg/storage"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// Recorder captures completion callbacks for inspection
type Recorder struct {
	completions []*wizard.Completion
	err         error
	mu          sync.Mutex
}

// NewRecorder creates a completion recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Complete is a wizard.CompleteFunc recording each completion
func (r *Recorder) Complete(_ context.Context, c *wizard.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.completions = append(r.completions, c)
	return nil
}

// SetError makes subsequent completions fail with err
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Completions returns the recorded completions
func (r *Recorder) Completions() []*wizard.Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*wizard.Completion, len(r.completions))
	copy(res, r.completions)
	return res
}

// NewTestWizard builds a three-step signup wizard. The company step is
// active only when the account step's plan is "business"
func NewTestWizard(rec *Recorder, opts ...wizard.Option) (*wizard.Wizard, error) {
	b := builder.NewWizard("signup").
		Step(builder.NewStep("account").
			Required("username", api.FieldString).
			Required("email", api.FieldEmail).
			Choice("plan", "personal", "business")).
		Step(builder.NewStep("company").
			Required("company", api.FieldString).
			Optional("vat", api.FieldString).
			WhenEqual("steps.account.plan", "business")).
		Step(builder.NewStep("confirm").
			Required("agree", api.FieldBool)).
		OnComplete(rec.Complete)
	w, err := b.Build()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// AccountData is a valid submission for the account step
func AccountData(plan string) api.RawValues {
	return api.RawValues{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"plan":     {plan},
	}
}

// CompanyData is a valid submission for the company step
func CompanyData() api.RawValues {
	return api.RawValues{
		"company": {"Analytical Engines Ltd"},
	}
}

// ConfirmData is a valid submission for the confirm step
func ConfirmData() api.RawValues {
	return api.RawValues{
		"agree": {"true"},
	}
}

// NewMemorySession creates a loaded session over a fresh in-memory store
func NewMemorySession(
	ctx context.Context, w *wizard.Wizard, key string,
) (*wizard.Session, error) {
	sess := wizard.NewSession(w, storage.NewMemoryStore(), key)
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}
