package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when using a closed connection.
	ErrClosed = errors.New("transport closed")

	// ErrMissingContentLength is returned for a frame without a length header.
	ErrMissingContentLength = errors.New("missing Content-Length header")

	// ErrFrameTooLarge is returned for frames above MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrUnknownFrame is returned for frames with an unrecognized kind.
	ErrUnknownFrame = errors.New("unknown frame kind")

	// ErrRootNotAllowed is returned for a load frame outside the plugin roots.
	ErrRootNotAllowed = errors.New("plugin directory outside plugin roots")
)
