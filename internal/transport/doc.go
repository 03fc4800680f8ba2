// Package transport carries plugin traffic between processes.
//
// The editor process runs a Channel over a FrameConn; the plugin-host
// process runs Serve over the other end, backed by a plugin.InProcessChannel
// that executes the Lua plugins. Frames are JSON documents tagged with a
// kind:
//
//	{"kind":"message","message":{...},"filter":{...}}   host -> plugin host
//	{"kind":"load","root":"/path/to/plugin"}            host -> plugin host
//	{"kind":"response","response":{...}}                plugin host -> host
//	{"kind":"error","error":"..."}                      plugin host -> host
//
// StreamConn frames documents with LSP-style Content-Length headers over a
// pipe or stdio. WSConn carries one document per websocket text message.
package transport
