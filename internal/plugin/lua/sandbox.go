package lua

import (
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	mu      sync.RWMutex
	modules map[string]bool
}

// builtinModules may always be required.
var builtinModules = []string{"string", "table", "math"}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	s := &Sandbox{
		L:       L,
		modules: make(map[string]bool),
	}
	for _, m := range builtinModules {
		s.modules[m] = true
	}
	return s
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Remove functions that could be used to bypass the sandbox
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installSafeRequire()
}

// installSafeRequire clears package.path/cpath so nothing loads from disk,
// and replaces require with a version that only resolves allowed modules.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	baseRequire := s.L.GetGlobal("require")
	if baseRequire.Type() != lua.LTFunction {
		return
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !s.Allowed(modName) {
			L.RaiseError("module %q is not available in the sandbox", modName)
			return 0
		}
		L.Push(baseRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}

// Allow permits require(name).
func (s *Sandbox) Allow(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = true
}

// Allowed returns true if require(name) is permitted.
func (s *Sandbox) Allowed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules[name]
}

// Modules returns the allowed module names, sorted.
func (s *Sandbox) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
