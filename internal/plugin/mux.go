package plugin

import "errors"

// MuxChannel fans messages out to several channels and merges their
// responses. Connect and LoadPlugin go to the first child that supports them.
type MuxChannel struct {
	children []Channel
}

// NewMuxChannel creates a channel over children.
func NewMuxChannel(children ...Channel) *MuxChannel {
	return &MuxChannel{children: children}
}

// Send implements Channel.
func (m *MuxChannel) Send(msg Message, filter Filter) error {
	var errs []error
	for _, ch := range m.children {
		if err := ch.Send(msg, filter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnResponse implements Channel. The handler may be called concurrently by
// different children.
func (m *MuxChannel) OnResponse(handler ResponseHandler) {
	for _, ch := range m.children {
		ch.OnResponse(handler)
	}
}

// Close implements Channel.
func (m *MuxChannel) Close() error {
	var errs []error
	for _, ch := range m.children {
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connect implements Connector.
func (m *MuxChannel) Connect(name string, caps Capabilities) (PluginChannel, error) {
	for _, ch := range m.children {
		if c, ok := ch.(Connector); ok {
			return c.Connect(name, caps)
		}
	}
	return nil, ErrNoConnector
}

// LoadPlugin implements Loader.
func (m *MuxChannel) LoadPlugin(p *Plugin) error {
	for _, ch := range m.children {
		if l, ok := ch.(Loader); ok {
			return l.LoadPlugin(p)
		}
	}
	return ErrNoConnector
}
