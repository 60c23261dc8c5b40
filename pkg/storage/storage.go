// Package storage provides the pluggable persistence backends for wizard
// session state and uploaded files
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/stepwise/formwizard/pkg/api"
)

type (
	// Store persists wizard state per session key. Load returns
	// ErrNotFound for keys that have never been saved or were deleted
	Store interface {
		Load(ctx context.Context, key string) (*api.WizardState, error)
		Save(ctx context.Context, key string, st *api.WizardState) error
		Delete(ctx context.Context, key string) error
	}

	// FileStore holds uploaded file payloads outside of wizard state. The
	// state records api.FileRef keys into this store
	FileStore interface {
		Put(ctx context.Context, key string, r io.Reader) (int64, error)
		Open(ctx context.Context, key string) (io.ReadCloser, error)
		Delete(ctx context.Context, key string) error
		Close() error
	}
)

var (
	// ErrNotFound is returned when no state exists for a session key
	ErrNotFound = errors.New("wizard state not found")

	// ErrFileNotFound is returned when a file key has no stored payload
	ErrFileNotFound = errors.New("stored file not found")
)
