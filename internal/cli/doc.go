// Package cli implements the oxbow command line.
//
// The run command bridges an editor speaking JSON lines on stdio to the
// plugin manager. The plugin-host command runs plugins for a remote
// editor over stdio or a websocket.
package cli
