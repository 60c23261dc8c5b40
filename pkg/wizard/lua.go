package wizard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/stepwise/formwizard/pkg/api"
)

// LuaCondition is a step condition backed by a sandboxed Lua predicate. The
// script sees two locals, `steps` (stored step data keyed by step name) and
// `extra` (the extra-context map), and its result is taken as the boolean
// inclusion decision
type LuaCondition struct {
	bytecode  []byte
	statePool chan *lua.State
}

const (
	luaStatePoolSize    = 4
	luaGlobalTableIndex = -2
	luaTableEntryIndex  = -3
	luaGlobalTableName  = "_G"
	luaPrologue         = "local steps = select(1, ...)\n" +
		"local extra = select(2, ...)\n"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

var _ Condition = (*LuaCondition)(nil)

// NewLuaCondition compiles script into a reusable predicate. Compilation
// errors surface immediately rather than at evaluation time
func NewLuaCondition(script string) (*LuaCondition, error) {
	L := lua.NewState()
	setupLuaSandbox(L)

	if err := lua.LoadString(L, luaPrologue+script); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	return &LuaCondition{
		bytecode:  buf.Bytes(),
		statePool: make(chan *lua.State, luaStatePoolSize),
	}, nil
}

// Evaluate runs the predicate against the wizard state projection
func (lc *LuaCondition) Evaluate(st *api.WizardState) (bool, error) {
	var doc struct {
		Steps map[string]any `json:"steps"`
		Extra map[string]any `json:"extra"`
	}
	if err := json.Unmarshal(st.Projection(), &doc); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	L := lc.getState()
	defer lc.returnState(L)

	setupLuaSandbox(L)
	if err := L.Load(
		bytes.NewReader(lc.bytecode), "condition", "b",
	); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}

	pushLuaMap(L, doc.Steps)
	pushLuaMap(L, doc.Extra)

	if err := L.ProtectedCall(2, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

func (lc *LuaCondition) getState() *lua.State {
	select {
	case L := <-lc.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (lc *LuaCondition) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case lc.statePool <- L:
	default:
	}
}

func setupLuaSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case float64:
		L.PushNumber(v)
	case []any:
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaTableEntryIndex)
	}
}

func pushLuaMap(L *lua.State, m map[string]any) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaTableEntryIndex)
	}
}
