// Package formwizard implements a multi-step form wizard: an ordered set of
// data-entry steps whose progress is persisted between HTTP requests, with
// per-step schema validation and a completion gate that revalidates every
// step before the wizard's callback fires.
package formwizard

const (
	// Name is the service name reported in logs and health responses
	Name = "formwizard"

	// Version is the service version reported in logs
	Version = "0.1.0"
)
