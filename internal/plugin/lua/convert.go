package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// ToString converts a Lua value to its display string. nil becomes "".
func ToString(lv lua.LValue) string {
	if lv == nil || lv == lua.LNil {
		return ""
	}
	return lv.String()
}

// ToStrings flattens a Lua value into a list of strings. A table contributes
// its array part in order; any other value contributes one element.
func ToStrings(lv lua.LValue) []string {
	switch v := lv.(type) {
	case nil:
		return nil
	case *lua.LTable:
		out := make([]string, 0, v.Len())
		for i := 1; i <= v.Len(); i++ {
			out = append(out, ToString(v.RawGetInt(i)))
		}
		return out
	default:
		if lv == lua.LNil {
			return nil
		}
		return []string{lv.String()}
	}
}

// FromStrings converts a list of strings to a Lua array table.
func FromStrings(L *lua.LState, s []string) *lua.LTable {
	tbl := L.CreateTable(len(s), 0)
	for _, v := range s {
		tbl.Append(lua.LString(v))
	}
	return tbl
}

// Truthy reports Lua truthiness: everything except nil and false.
func Truthy(lv lua.LValue) bool {
	return lua.LVAsBool(lv)
}
