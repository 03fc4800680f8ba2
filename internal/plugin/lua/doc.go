// Package lua hosts plugin scripts in sandboxed gopher-lua states.
//
// A State runs one plugin. The sandbox removes the loaders that could reach
// outside the plugin (dofile, loadfile, load, loadstring), restricts require
// to preloaded modules, and only opens the base, table, string and math
// libraries. Permissions granted from the plugin manifest add narrowly
// scoped functionality back:
//
//   - filesystem.read: fs.read_file and fs.lines, confined to the plugin root
//
// Every call into Lua runs under a deadline; a script that exceeds it is
// aborted through the state's context.
//
// The Bridge converts between JSON documents and Lua values, which is how
// channel messages reach scripts and how script replies leave them.
package lua
