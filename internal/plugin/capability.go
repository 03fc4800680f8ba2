package plugin

import "slices"

// AnyFileType in SupportedFileTypes admits every filetype. In
// LanguageService it admits every capability.
const AnyFileType = "*"

// Capabilities are the features a plugin declares in its manifest.
type Capabilities struct {
	// SupportedFileTypes lists the filetypes the plugin wants traffic for.
	SupportedFileTypes []string `json:"supportedFileTypes,omitempty" yaml:"supportedFileTypes,omitempty"`

	// LanguageService lists the language-service requests the plugin answers,
	// e.g. "quick-info" or "completion-provider".
	LanguageService []string `json:"languageService,omitempty" yaml:"languageService,omitempty"`
}

// Filter selects the plugins a message is delivered to.
type Filter struct {
	FileType   string `json:"fileType"`
	Capability string `json:"capability,omitempty"`
}

// NewFilter returns a filter for plugins supporting fileType.
func NewFilter(fileType string) Filter {
	return Filter{FileType: fileType}
}

// WithCapability returns a copy of f that also requires capability.
func (f Filter) WithCapability(capability string) Filter {
	f.Capability = capability
	return f
}

// Admits reports whether a plugin declaring caps should receive a message
// sent with f. A plugin without supported filetypes is never admitted.
func (f Filter) Admits(caps Capabilities) bool {
	if !slices.Contains(caps.SupportedFileTypes, AnyFileType) &&
		!slices.Contains(caps.SupportedFileTypes, f.FileType) {
		return false
	}
	if f.Capability == "" {
		return true
	}
	return slices.Contains(caps.LanguageService, AnyFileType) ||
		slices.Contains(caps.LanguageService, f.Capability)
}
