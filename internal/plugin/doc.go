// Package plugin hosts scripted overlay plugins written in Lua.
//
// A plugin is a directory under one of the search paths holding a manifest
// (plugin.json or plugin.yaml) and a Lua entry point:
//
//	todo/
//	  plugin.json   {"id": "todo", "name": "Todo", "icon": "T", "main": "init.lua"}
//	  init.lua
//
// A directory with only init.lua or main.lua, or a single name.lua file, is
// also a plugin; its id is the directory or file name.
//
// # Script API
//
// The script may define two globals:
//
//	function init(surface, channel)
//	    surface:set_title("Todo")
//	    surface:set_lines({"write tests", "ship it"})
//	    channel:notify(true)
//	    channel:on_toggle(function(active) print("active", active) end)
//	end
//
//	function before_deactivate(surface)
//	    if dirty then
//	        return false -- keeps the panel open
//	    end
//	end
//
// Only an explicit false from before_deactivate keeps the panel open.
// Returning nothing, nil or any other value lets it close.
//
// require("devbar") returns a module with id, api_version and log(level, msg).
//
// # Lifecycle
//
// The Loader discovers manifests. A Host wraps one manifest and produces an
// overlay.Descriptor whose Init hook loads and runs the script, so script
// errors leave only that plugin in the Error status.
package plugin
