package plugin

import (
	"sync"

	"github.com/dshills/oxbow/internal/protocol"
)

// ResponseSender sends unsolicited responses. PluginChannel satisfies it.
type ResponseSender interface {
	Send(t ResponseType, errMsg string, payload any) error
}

// Diagnostics forwards a plugin's diagnostic sets to the host, dropping
// empty sets for files that never had errors.
type Diagnostics struct {
	sender ResponseSender

	mu                  sync.Mutex
	filesThatHaveErrors map[string]bool
}

// NewDiagnostics creates a reporter sending through sender.
func NewDiagnostics(sender ResponseSender) *Diagnostics {
	return &Diagnostics{
		sender:              sender,
		filesThatHaveErrors: make(map[string]bool),
	}
}

// SetErrors replaces the diagnostics reported under key for fileName.
// A nil slice is ignored. An empty slice clears the file and is only sent
// when the file previously had errors.
func (d *Diagnostics) SetErrors(key, fileName string, errs []protocol.Diagnostic) error {
	if errs == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(errs) == 0 && !d.filesThatHaveErrors[fileName] {
		return nil
	}
	d.filesThatHaveErrors[fileName] = len(errs) > 0

	return d.sender.Send(ResponseSetErrors, "", SetErrorsPayload{
		Key:      key,
		FileName: fileName,
		Errors:   errs,
	})
}

// HasErrors reports whether the last set sent for fileName was non-empty.
func (d *Diagnostics) HasErrors(fileName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filesThatHaveErrors[fileName]
}
