package plugin

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
	plua "github.com/dshills/devbar/internal/plugin/lua"
)

// APIVersion is reported to scripts as devbar.api_version.
const APIVersion = 1

// Lua type names of the userdata handed to scripts.
const (
	surfaceTypeName = "devbar.surface"
	channelTypeName = "devbar.channel"
)

// installAPI registers the devbar module, the surface and channel types, and
// a print that writes to the host log. Called with h.mu held, before the
// script runs.
func (h *Host) installAPI(state *plua.State) {
	L := state.LuaState()

	surfaceMT := L.NewTypeMetatable(surfaceTypeName)
	L.SetField(surfaceMT, "__index", L.SetFuncs(L.NewTable(), h.surfaceMethods()))

	channelMT := L.NewTypeMetatable(channelTypeName)
	L.SetField(channelMT, "__index", L.SetFuncs(L.NewTable(), h.channelMethods(state)))

	h.surfaceUD = L.NewUserData()
	h.surfaceUD.Value = h.surface
	L.SetMetatable(h.surfaceUD, surfaceMT)

	h.channelUD = L.NewUserData()
	h.channelUD.Value = h.channel
	L.SetMetatable(h.channelUD, channelMT)

	state.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		h.logger.Info(joinArgs(L, 1))
		return 0
	}))

	state.PreloadModule("devbar", func(L *lua.LState) int {
		mod := L.NewTable()
		L.SetField(mod, "id", lua.LString(h.manifest.ID))
		L.SetField(mod, "api_version", lua.LNumber(APIVersion))
		L.SetField(mod, "log", L.NewFunction(h.luaLog))
		L.Push(mod)
		return 1
	})
}

func (h *Host) surfaceMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"id": func(L *lua.LState) int {
			L.Push(lua.LString(checkSurface(L).ID()))
			return 1
		},
		"title": func(L *lua.LState) int {
			L.Push(lua.LString(checkSurface(L).Title()))
			return 1
		},
		"set_title": func(L *lua.LState) int {
			checkSurface(L).SetTitle(L.CheckString(2))
			return 0
		},
		"lines": func(L *lua.LState) int {
			L.Push(plua.FromStrings(L, checkSurface(L).Lines()))
			return 1
		},
		"set_lines": func(L *lua.LState) int {
			s := checkSurface(L)
			var lines []string
			for i := 2; i <= L.GetTop(); i++ {
				lines = append(lines, plua.ToStrings(L.Get(i))...)
			}
			s.SetLines(lines...)
			return 0
		},
		"append": func(L *lua.LState) int {
			checkSurface(L).AppendLine(plua.ToString(L.Get(2)))
			return 0
		},
		"clear": func(L *lua.LState) int {
			checkSurface(L).Clear()
			return 0
		},
		"shown": func(L *lua.LState) int {
			L.Push(lua.LBool(checkSurface(L).Shown()))
			return 1
		},
	}
}

func (h *Host) channelMethods(state *plua.State) map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"owner": func(L *lua.LState) int {
			checkChannel(L)
			L.Push(lua.LString(h.manifest.ID))
			return 1
		},
		"notify": func(L *lua.LState) int {
			ch := checkChannel(L)
			on := true
			if L.GetTop() >= 2 {
				on = plua.Truthy(L.Get(2))
			}
			if err := overlay.RequestNotification(ch, on); err != nil {
				L.RaiseError("notify: %v", err)
			}
			return 0
		},
		"on_toggle": func(L *lua.LState) int {
			checkChannel(L)
			fn := L.CheckFunction(2)
			if err := h.onToggle(state, fn); err != nil {
				L.RaiseError("on_toggle: %v", err)
			}
			return 0
		},
	}
}

// luaLog implements devbar.log(msg) and devbar.log(level, msg).
func (h *Host) luaLog(L *lua.LState) int {
	if L.GetTop() < 2 {
		h.logger.Info(joinArgs(L, 1))
		return 0
	}

	level := strings.ToLower(L.CheckString(1))
	msg := joinArgs(L, 2)
	switch level {
	case "debug":
		h.logger.Debug(msg)
	case "warn", "warning":
		h.logger.Warn(msg)
	case "error":
		h.logger.Error(msg)
	default:
		h.logger.Info(msg, zap.String("level", level))
	}
	return 0
}

func joinArgs(L *lua.LState, from int) string {
	parts := make([]string, 0, L.GetTop())
	for i := from; i <= L.GetTop(); i++ {
		parts = append(parts, plua.ToString(L.Get(i)))
	}
	return strings.Join(parts, " ")
}

func checkSurface(L *lua.LState) *overlay.Surface {
	ud := L.CheckUserData(1)
	if s, ok := ud.Value.(*overlay.Surface); ok && s != nil {
		return s
	}
	L.ArgError(1, "surface expected")
	return nil
}

func checkChannel(L *lua.LState) *event.Channel {
	ud := L.CheckUserData(1)
	if ch, ok := ud.Value.(*event.Channel); ok && ch != nil {
		return ch
	}
	L.ArgError(1, "channel expected")
	return nil
}
