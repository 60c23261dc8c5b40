package builder

import (
	"maps"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/wizard"
)

// Step accumulates one step declaration. Each With* call returns a copy,
// so partially built steps can be shared and forked
type Step struct {
	schema    *api.Schema
	condition wizard.Condition
	instance  wizard.InstanceProvider
	initial   api.Values
	name      api.Name
}

// NewStep creates a step builder with the given name
func NewStep(name api.Name) *Step {
	return &Step{
		name:   name,
		schema: &api.Schema{Fields: map[string]*api.FieldSpec{}},
	}
}

// Field adds a field with an explicit spec, preserving declaration order
func (s *Step) Field(name string, spec *api.FieldSpec) *Step {
	res := *s
	schema := &api.Schema{
		Fields: maps.Clone(s.schema.Fields),
		Order:  append([]string{}, s.schema.Order...),
	}
	schema.Fields[name] = spec
	schema.Order = append(schema.Order, name)
	res.schema = schema
	return &res
}

// Required adds a required field of the given type
func (s *Step) Required(name string, fieldType api.FieldType) *Step {
	return s.Field(name, &api.FieldSpec{Type: fieldType, Required: true})
}

// Optional adds an optional field of the given type
func (s *Step) Optional(name string, fieldType api.FieldType) *Step {
	return s.Field(name, &api.FieldSpec{Type: fieldType})
}

// Choice adds a required choice field with the given options
func (s *Step) Choice(name string, choices ...string) *Step {
	return s.Field(name, &api.FieldSpec{
		Type:     api.FieldChoice,
		Required: true,
		Choices:  choices,
	})
}

// File adds a required file-upload field
func (s *Step) File(name string) *Step {
	return s.Field(name, &api.FieldSpec{Type: api.FieldFile, Required: true})
}

// WithInitial sets the step's initial data
func (s *Step) WithInitial(initial api.Values) *Step {
	res := *s
	res.initial = initial
	return &res
}

// WithInstance binds an existing record for edit flows
func (s *Step) WithInstance(instance wizard.InstanceProvider) *Step {
	res := *s
	res.instance = instance
	return &res
}

// When sets the step's inclusion condition
func (s *Step) When(cond wizard.Condition) *Step {
	res := *s
	res.condition = cond
	return &res
}

// WhenEqual includes the step when the projection value at path equals want
func (s *Step) WhenEqual(path, want string) *Step {
	return s.When(wizard.WhenEqual(path, want))
}

// WhenTruthy includes the step when the projection value at path is truthy
func (s *Step) WhenTruthy(path string) *Step {
	return s.When(wizard.WhenTruthy(path))
}

// WhenLua includes the step when the Lua predicate returns true. Compile
// errors surface when the condition is first evaluated
func (s *Step) WhenLua(script string) *Step {
	res := *s
	cond, err := wizard.NewLuaCondition(script)
	if err != nil {
		res.condition = wizard.CondFunc(
			func(*api.WizardState) (bool, error) {
				return false, err
			},
		)
		return &res
	}
	res.condition = cond
	return &res
}

// Build assembles and validates the step declaration
func (s *Step) Build() (*wizard.Step, error) {
	step := &wizard.Step{
		Name:      s.name,
		Schema:    s.schema,
		Initial:   s.initial,
		Instance:  s.instance,
		Condition: s.condition,
	}
	if err := step.Validate(); err != nil {
		return nil, err
	}
	return step, nil
}
