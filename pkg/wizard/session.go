package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path"

	"github.com/google/uuid"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/log"
	"github.com/stepwise/formwizard/pkg/storage"
)

type (
	// Session binds a wizard to one visitor's persisted state. Within a
	// request the state is loaded once, mutated in memory, and saved once
	Session struct {
		wizard *Wizard
		store  storage.Store
		state  *api.WizardState
		key    string
	}

	// Upload is a submitted file destined for the wizard's file store
	Upload struct {
		Reader      io.Reader
		Field       string
		Name        string
		ContentType string
	}

	// SubmitStatus describes the result of a step submission
	SubmitStatus string

	// SubmitOutcome is the result of Submit or Finalize. Step names the
	// step the caller should show next: the advanced-to step, the rejected
	// step, or the step that failed revalidation
	SubmitOutcome struct {
		Completion *Completion
		Errors     api.FieldErrors
		Status     SubmitStatus
		Step       api.Name
	}
)

const (
	// StepRejected means the submitted data failed the step's schema
	StepRejected SubmitStatus = "rejected"

	// StepAdvanced means the data was stored and the session moved on
	StepAdvanced SubmitStatus = "advanced"

	// RevalidationFailed means a previously stored step no longer
	// validates; the session was rewound to it
	RevalidationFailed SubmitStatus = "revalidation_failed"

	// WizardCompleted means every active step validated and the
	// completion callback ran
	WizardCompleted SubmitStatus = "completed"
)

var (
	ErrNotLoaded    = errors.New("session state not loaded")
	ErrNoPrevStep   = errors.New("no previous step")
	ErrStepInactive = errors.New("step not in active set")
	ErrStoreUpload  = errors.New("failed to store upload")
)

// NewSession creates a session for the given store key. Call Load before
// any other operation
func NewSession(w *Wizard, store storage.Store, key string) *Session {
	return &Session{
		wizard: w,
		store:  store,
		key:    key,
	}
}

// Key returns the session's storage key
func (s *Session) Key() string {
	return s.key
}

// State exposes the loaded state for inspection
func (s *Session) State() *api.WizardState {
	return s.state
}

// Load fetches the persisted state, starting fresh when none exists
func (s *Session) Load(ctx context.Context) error {
	st, err := s.store.Load(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.state = api.NewWizardState()
		return nil
	}
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

// Save persists the in-memory state
func (s *Session) Save(ctx context.Context) error {
	if s.state == nil {
		return ErrNotLoaded
	}
	return s.store.Save(ctx, s.key, s.state)
}

// Begin resets the session and positions it at the first active step
func (s *Session) Begin(ctx context.Context) (api.Name, error) {
	if err := s.Reset(ctx); err != nil {
		return "", err
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return "", err
	}
	s.state.Current = seq.First()
	return s.state.Current, s.Save(ctx)
}

// Reset discards all persisted progress, including stored uploads
func (s *Session) Reset(ctx context.Context) error {
	if s.state != nil {
		s.deleteStoredFiles(ctx, s.state.AllFiles())
	}
	s.state = api.NewWizardState()
	return s.store.Delete(ctx, s.key)
}

// Current resolves the step the session is on
func (s *Session) Current() (api.Name, error) {
	if s.state == nil {
		return "", ErrNotLoaded
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return "", err
	}
	return seq.Current(s.state), nil
}

// Sequence returns the active step sequence for the loaded state
func (s *Session) Sequence() (*Sequence, error) {
	if s.state == nil {
		return nil, ErrNotLoaded
	}
	return s.wizard.Sequence(s.state)
}

// Submit validates raw data and uploads against the current step's schema.
// On success the input is stored and the session advances; submitting the
// last active step triggers the completion gate
func (s *Session) Submit(
	ctx context.Context, raw api.RawValues, uploads []*Upload,
) (*SubmitOutcome, error) {
	if s.state == nil {
		return nil, ErrNotLoaded
	}

	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return nil, err
	}
	current := seq.Current(s.state)
	step, err := s.wizard.StepByName(current)
	if err != nil {
		return nil, err
	}

	files, stored, replaced, err := s.storeUploads(ctx, current, uploads)
	if err != nil {
		return nil, err
	}

	if _, fieldErrs := step.Schema.Clean(raw, files); fieldErrs != nil {
		s.deleteStoredFiles(ctx, stored)
		return &SubmitOutcome{
			Status: StepRejected,
			Step:   current,
			Errors: fieldErrs,
		}, nil
	}

	s.deleteStoredFiles(ctx, replaced)
	s.state.SetStepData(current, raw)
	s.state.SetStepFiles(current, files)

	// Stored data can change which steps are active, so the sequence is
	// rebuilt before deciding where to go
	seq, err = s.wizard.Sequence(s.state)
	if err != nil {
		return nil, err
	}

	next := seq.Next(current)
	if next == "" {
		// A submission can deactivate its own step; only the actual last
		// active step reaches the completion gate
		if !seq.Contains(current) {
			s.state.Current = seq.Current(s.state)
			if err := s.Save(ctx); err != nil {
				return nil, err
			}
			return &SubmitOutcome{
				Status: StepAdvanced,
				Step:   s.state.Current,
			}, nil
		}
		return s.finalize(ctx, seq)
	}

	s.state.Current = next
	if err := s.Save(ctx); err != nil {
		return nil, err
	}
	return &SubmitOutcome{Status: StepAdvanced, Step: next}, nil
}

// Finalize runs the completion gate: every active step's stored data is
// revalidated in order, and only when all pass does the completion
// callback fire. A failing step rewinds the session to it, so tampering
// with already-submitted data cannot slip through
func (s *Session) Finalize(ctx context.Context) (*SubmitOutcome, error) {
	if s.state == nil {
		return nil, ErrNotLoaded
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, seq)
}

func (s *Session) finalize(
	ctx context.Context, seq *Sequence,
) (*SubmitOutcome, error) {
	completion := &Completion{
		Wizard: s.wizard.Name,
		Merged: api.Values{},
	}

	for _, step := range seq.Steps() {
		values, fieldErrs := step.Schema.Clean(
			s.state.StepData(step.Name), s.state.StepFiles(step.Name),
		)
		if fieldErrs != nil {
			s.state.Current = step.Name
			if err := s.Save(ctx); err != nil {
				return nil, err
			}
			return &SubmitOutcome{
				Status: RevalidationFailed,
				Step:   step.Name,
				Errors: fieldErrs,
			}, nil
		}

		completion.Merged = completion.Merged.Merge(values)
		completion.Steps = append(completion.Steps, StepData{
			Name:   step.Name,
			Values: values,
			Files:  maps.Clone(s.state.StepFiles(step.Name)),
		})
	}

	if err := s.wizard.OnComplete(ctx, completion); err != nil {
		return nil, err
	}

	if err := s.Reset(ctx); err != nil {
		slog.Warn("Failed to reset completed session",
			log.Wizard(s.wizard.Name),
			log.Session(s.key),
			log.Error(err))
	}

	return &SubmitOutcome{
		Status:     WizardCompleted,
		Completion: completion,
	}, nil
}

// Back moves the session to the previous active step without validation
func (s *Session) Back(ctx context.Context) (api.Name, error) {
	if s.state == nil {
		return "", ErrNotLoaded
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return "", err
	}
	prev := seq.Prev(seq.Current(s.state))
	if prev == "" {
		return "", ErrNoPrevStep
	}
	s.state.Current = prev
	return prev, s.Save(ctx)
}

// GoTo jumps to any step in the active set without validation
func (s *Session) GoTo(ctx context.Context, step api.Name) error {
	if s.state == nil {
		return ErrNotLoaded
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return err
	}
	if !seq.Contains(step) {
		return fmt.Errorf("%w: %s", ErrStepInactive, step)
	}
	s.state.Current = step
	return s.Save(ctx)
}

// CleanedData revalidates and returns the stored data for one step. The
// second result is false when the step has no valid stored data
func (s *Session) CleanedData(step api.Name) (api.Values, bool) {
	decl, err := s.wizard.StepByName(step)
	if err != nil || s.state == nil {
		return nil, false
	}
	values, fieldErrs := decl.Schema.Clean(
		s.state.StepData(step), s.state.StepFiles(step),
	)
	if fieldErrs != nil {
		return nil, false
	}
	return values, true
}

// AllCleanedData merges the cleaned data of every active step, skipping
// steps whose stored data no longer validates
func (s *Session) AllCleanedData() (api.Values, error) {
	if s.state == nil {
		return nil, ErrNotLoaded
	}
	seq, err := s.wizard.Sequence(s.state)
	if err != nil {
		return nil, err
	}

	merged := api.Values{}
	for _, step := range seq.Steps() {
		if values, ok := s.CleanedData(step.Name); ok {
			merged = merged.Merge(values)
		}
	}
	return merged, nil
}

// Extra returns the session's extra-context map
func (s *Session) Extra() map[string]any {
	if s.state == nil {
		return nil
	}
	return s.state.Extra
}

// UpdateExtra merge-updates the extra context and persists the state
func (s *Session) UpdateExtra(
	ctx context.Context, extra map[string]any,
) error {
	if s.state == nil {
		return ErrNotLoaded
	}
	s.state.UpdateExtra(extra)
	return s.Save(ctx)
}

// storeUploads writes uploads to the file store. It returns the step's
// resulting file map, the refs stored by this call (rolled back when the
// submission is rejected), and the refs they replaced (deleted only once
// the submission is accepted)
func (s *Session) storeUploads(
	ctx context.Context, step api.Name, uploads []*Upload,
) (api.Files, []api.FileRef, []api.FileRef, error) {
	files := maps.Clone(s.state.StepFiles(step))
	if files == nil {
		files = api.Files{}
	}
	if len(uploads) == 0 {
		return files, nil, nil, nil
	}
	if s.wizard.Files == nil {
		return nil, nil, nil, ErrNoFileStorage
	}

	var stored, replaced []api.FileRef
	for _, up := range uploads {
		key := path.Join(s.wizard.Name, s.key, uuid.NewString())
		size, err := s.wizard.Files.Put(ctx, key, up.Reader)
		if err != nil {
			s.deleteStoredFiles(ctx, stored)
			return nil, nil, nil, fmt.Errorf("%w: %s: %w",
				ErrStoreUpload, up.Field, err)
		}

		ref := api.FileRef{
			Key:         key,
			Name:        up.Name,
			ContentType: up.ContentType,
			Size:        size,
		}
		if old, ok := files[up.Field]; ok {
			replaced = append(replaced, old)
		}
		files[up.Field] = ref
		stored = append(stored, ref)
	}
	return files, stored, replaced, nil
}

func (s *Session) deleteStoredFiles(ctx context.Context, refs []api.FileRef) {
	if s.wizard.Files == nil {
		return
	}
	for _, ref := range refs {
		if err := s.wizard.Files.Delete(ctx, ref.Key); err != nil {
			slog.Warn("Failed to delete stored upload",
				log.Wizard(s.wizard.Name),
				slog.String("key", ref.Key),
				log.Error(err))
		}
	}
}
