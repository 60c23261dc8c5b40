package wizard

import (
	"github.com/tidwall/gjson"

	"github.com/stepwise/formwizard/pkg/api"
)

type (
	// Condition decides whether a step belongs to the active step set. It
	// is evaluated over the current wizard state only, never over step
	// position, so reordering steps cannot change membership
	Condition interface {
		Evaluate(st *api.WizardState) (bool, error)
	}

	// CondFunc adapts an ordinary predicate into a Condition
	CondFunc func(st *api.WizardState) (bool, error)

	boolCondition bool

	pathCondition struct {
		check func(gjson.Result) bool
		path  string
	}
)

// Evaluate calls the wrapped predicate
func (f CondFunc) Evaluate(st *api.WizardState) (bool, error) {
	return f(st)
}

func (b boolCondition) Evaluate(*api.WizardState) (bool, error) {
	return bool(b), nil
}

// Always returns a condition with a fixed result
func Always(include bool) Condition {
	return boolCondition(include)
}

// WhenEqual includes a step when the value at path in the state projection
// equals want. Paths address stored data as steps.<step>.<field> and the
// extra context as extra.<key>
func WhenEqual(path, want string) Condition {
	return &pathCondition{
		path: path,
		check: func(r gjson.Result) bool {
			return r.Exists() && r.String() == want
		},
	}
}

// WhenTruthy includes a step when the value at path exists and is truthy
// (non-empty, non-zero, not "false")
func WhenTruthy(path string) Condition {
	return &pathCondition{
		path: path,
		check: func(r gjson.Result) bool {
			switch r.Type {
			case gjson.True:
				return true
			case gjson.Number:
				return r.Float() != 0
			case gjson.String:
				s := r.String()
				return s != "" && s != "0" && s != "false" && s != "off"
			default:
				return r.IsObject() || r.IsArray()
			}
		},
	}
}

func (p *pathCondition) Evaluate(st *api.WizardState) (bool, error) {
	return p.check(gjson.GetBytes(st.Projection(), p.path)), nil
}

func evaluateCondition(cond Condition, st *api.WizardState) (bool, error) {
	if cond == nil {
		return true, nil
	}
	return cond.Evaluate(st)
}
