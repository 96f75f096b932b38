// Package lua provides the Lua runtime used by scripted overlay plugins.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - Context-bounded calls with an execution timeout
//   - Conversion of Lua values to Go strings and lists
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	defer state.Close()
//
//	if err := state.DoFile(ctx, "main.lua"); err != nil {
//	    return err
//	}
//	results, err := state.Call(ctx, "init", surface, channel)
//
// # Sandbox
//
// The Sandbox restricts Lua code execution by:
//   - Not opening the io, os and debug libraries
//   - Removing dofile, loadfile, load and loadstring
//   - Limiting require to string, table, math and preloaded modules
package lua
