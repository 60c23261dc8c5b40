package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
)

func testState() *api.WizardState {
	st := api.NewWizardState()
	st.Current = "account"
	st.SetStepData("account", api.RawValues{"plan": {"business"}})
	st.UpdateExtra(map[string]any{"tenant": "acme"})
	return st
}

func TestMemoryStore(t *testing.T) {
	as := assert.New(t)
	ctx := context.Background()

	store := storage.NewMemoryStore()

	_, err := store.Load(ctx, "missing")
	as.ErrorIs(err, storage.ErrNotFound)

	st := testState()
	as.NoError(store.Save(ctx, "k1", st))
	as.Equal(1, store.Len())

	loaded, err := store.Load(ctx, "k1")
	as.NoError(err)
	as.Equal(api.Name("account"), loaded.Current)
	as.Equal("business", loaded.StepData("account").Get("plan"))

	// The store must never alias caller state
	loaded.StepData("account")["plan"][0] = "personal"
	again, err := store.Load(ctx, "k1")
	as.NoError(err)
	as.Equal("business", again.StepData("account").Get("plan"))

	as.NoError(store.Delete(ctx, "k1"))
	_, err = store.Load(ctx, "k1")
	as.ErrorIs(err, storage.ErrNotFound)

	as.NoError(store.Delete(ctx, "k1"))
}
