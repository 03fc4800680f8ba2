// Package config loads and serves oxbow configuration.
//
// Configuration is resolved in layers, later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. The TOML configuration file
//  3. Variables from an optional .env file
//  4. OXBOW_* environment variables
//
// A Store holds the active configuration and notifies subscribers when it
// changes. A Watcher reloads the file into a Store when it is modified on disk.
//
// Example configuration file:
//
//	[plugins]
//	useDefault = true
//	userFolder = "~/.config/oxbow"
//
//	[editor.quickInfo]
//	delay = 500
//
//	[editor.completions]
//	enabled = true
package config
