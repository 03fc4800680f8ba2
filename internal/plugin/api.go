package plugin

// API is the handle a Go plugin uses to talk to the host.
type API struct {
	channel     PluginChannel
	diagnostics *Diagnostics
}

// NewAPI wraps a plugin endpoint.
func NewAPI(ch PluginChannel) *API {
	return &API{
		channel:     ch,
		diagnostics: NewDiagnostics(ch),
	}
}

// Name returns the plugin name.
func (a *API) Name() string {
	return a.channel.Name()
}

// On registers handler for messages of type t.
func (a *API) On(t MessageType, handler MessageHandler) {
	if handler == nil {
		return
	}
	a.channel.OnMessage(func(msg Message) {
		if msg.Type == t {
			handler(msg)
		}
	})
}

// Send sends an unsolicited response.
func (a *API) Send(t ResponseType, payload any) error {
	return a.channel.Send(t, "", payload)
}

// SendError sends an unsolicited failure.
func (a *API) SendError(t ResponseType, errMsg string) error {
	return a.channel.Send(t, errMsg, nil)
}

// Reply answers msg.
func (a *API) Reply(msg Message, t ResponseType, payload any) error {
	return a.channel.Reply(msg, t, "", payload)
}

// ReplyError answers msg with a failure.
func (a *API) ReplyError(msg Message, t ResponseType, errMsg string) error {
	return a.channel.Reply(msg, t, errMsg, nil)
}

// Diagnostics returns the plugin's diagnostics reporter.
func (a *API) Diagnostics() *Diagnostics {
	return a.diagnostics
}
