package plugin

import "errors"

// Plugin system errors.
var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("plugin manager already started")

	// ErrNotStarted is returned by operations that need a started manager.
	ErrNotStarted = errors.New("plugin manager not started")

	// ErrNoEventContext is returned when a request needs the current event
	// context and no editor event has been seen yet.
	ErrNoEventContext = errors.New("no editor event context")

	// ErrChannelClosed is returned when sending on a closed channel.
	ErrChannelClosed = errors.New("plugin channel closed")

	// ErrQueueFull is returned when a plugin's inbound queue is full.
	ErrQueueFull = errors.New("plugin queue full")

	// ErrNoManifest is returned when a plugin directory has no manifest.
	ErrNoManifest = errors.New("plugin has no manifest")

	// ErrNotRunnable is returned when loading a plugin without an entry point.
	ErrNotRunnable = errors.New("plugin has no entry point")

	// ErrIncompatible is returned when a plugin requires a newer editor.
	ErrIncompatible = errors.New("plugin is incompatible with this editor version")

	// ErrNoConnector is returned when the channel cannot attach named plugins.
	ErrNoConnector = errors.New("channel does not support attaching plugins")

	// ErrEmptyPayload is returned when decoding a response without a payload.
	ErrEmptyPayload = errors.New("response has no payload")
)
