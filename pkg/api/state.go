package api

import (
	"encoding/json"
	"maps"
	"slices"
)

type (
	// FileRef points at an upload held by the wizard's file store. State
	// carries references only, never file payloads
	FileRef struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		ContentType string `json:"content_type,omitempty"`
		Size        int64  `json:"size"`
	}

	// Files maps field names to stored upload references
	Files map[string]FileRef

	// WizardState is the persisted progress record for one in-flight
	// wizard session: the current step, the raw input stored per step,
	// upload references per step, and an arbitrary extra-context map
	WizardState struct {
		Data    map[Name]RawValues `json:"data,omitempty"`
		Files   map[Name]Files     `json:"files,omitempty"`
		Extra   map[string]any     `json:"extra,omitempty"`
		Current Name               `json:"current,omitempty"`
	}
)

// NewWizardState creates an empty state record
func NewWizardState() *WizardState {
	return &WizardState{
		Data:  map[Name]RawValues{},
		Files: map[Name]Files{},
		Extra: map[string]any{},
	}
}

// StepData returns the raw input stored for a step, or nil
func (s *WizardState) StepData(step Name) RawValues {
	return s.Data[step]
}

// SetStepData stores raw input for a step
func (s *WizardState) SetStepData(step Name, raw RawValues) {
	if s.Data == nil {
		s.Data = map[Name]RawValues{}
	}
	s.Data[step] = raw
}

// StepFiles returns the upload references stored for a step, or nil
func (s *WizardState) StepFiles(step Name) Files {
	return s.Files[step]
}

// SetStepFiles stores upload references for a step
func (s *WizardState) SetStepFiles(step Name, files Files) {
	if s.Files == nil {
		s.Files = map[Name]Files{}
	}
	if len(files) == 0 {
		delete(s.Files, step)
		return
	}
	s.Files[step] = files
}

// UpdateExtra merge-updates the extra-context map. Existing keys not named
// in extra are kept
func (s *WizardState) UpdateExtra(extra map[string]any) {
	if s.Extra == nil {
		s.Extra = map[string]any{}
	}
	maps.Copy(s.Extra, extra)
}

// AllFiles returns every stored upload reference across all steps
func (s *WizardState) AllFiles() []FileRef {
	var refs []FileRef
	for _, files := range s.Files {
		for _, ref := range files {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Clone returns a deep copy so stores never alias caller state
func (s *WizardState) Clone() *WizardState {
	res := &WizardState{
		Current: s.Current,
		Data:    make(map[Name]RawValues, len(s.Data)),
		Files:   make(map[Name]Files, len(s.Files)),
		Extra:   cloneAnyMap(s.Extra),
	}
	for step, raw := range s.Data {
		cp := make(RawValues, len(raw))
		for name, vs := range raw {
			cp[name] = slices.Clone(vs)
		}
		res.Data[step] = cp
	}
	for step, files := range s.Files {
		res.Files[step] = maps.Clone(files)
	}
	return res
}

// Projection renders the state as a JSON document of the shape
// {"steps": {<step>: {<field>: <value>}}, "extra": {...}} for path and
// script conditions. Single-valued raw entries flatten to strings
func (s *WizardState) Projection() []byte {
	steps := make(map[Name]map[string]any, len(s.Data))
	for step, raw := range s.Data {
		fields := make(map[string]any, len(raw))
		for name, vs := range raw {
			switch len(vs) {
			case 0:
				fields[name] = ""
			case 1:
				fields[name] = vs[0]
			default:
				fields[name] = vs
			}
		}
		steps[step] = fields
	}

	doc, err := json.Marshal(map[string]any{
		"steps": steps,
		"extra": s.Extra,
	})
	if err != nil {
		return []byte("{}")
	}
	return doc
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	res := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			res[k] = cloneAnyMap(nested)
			continue
		}
		res[k] = v
	}
	return res
}
