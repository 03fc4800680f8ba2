// Package plugin implements the host side of the oxbow plugin system.
//
// The Manager discovers plugin directories, forwards editor events and
// language-service requests to plugins over a Channel, and reacts to the
// responses plugins send back.
//
// # Channels
//
// A Channel carries outbound Messages, each paired with a Filter that the
// channel evaluates against every connected plugin's Capabilities. Responses
// flow back through a single handler in arrival order. InProcessChannel runs
// plugins inside the current process; the transport package provides
// cross-process and websocket channels with the same semantics.
//
// # Staleness
//
// The editor's cursor moves faster than plugins answer. The Manager keeps the
// EventContext of the most recent editor event and, for responses that answer
// a specific request (goto-definition, completion-provider and
// completion-provider-item-selected), discards any response whose origin no
// longer matches it. Requests also carry a unique id; a response for an
// outdated id is discarded even when the cursor has returned to the same
// position.
//
// # Plugins
//
// Every immediate subdirectory of a plugin root is one plugin. A directory
// with a manifest (plugin.json or plugin.yaml) and a Lua entry point is
// started in a sandboxed gopher-lua state and talks to the host through the
// global oxbow module:
//
//	oxbow.on("request", function(msg)
//	    if msg.payload.name == "quick-info" then
//	        oxbow.reply(msg, "show-quick-info", { info = "hello" })
//	    end
//	end)
//
// Directories without an entry point only contribute runtime paths.
package plugin
