package state

import "github.com/dshills/oxbow/internal/protocol"

// Errors holds diagnostics per file and per reporting source. It is
// immutable; Set returns a modified copy.
type Errors struct {
	files map[string]*FileErrors
}

// FileErrors holds one file's diagnostics by source key, in the order the
// sources first reported.
type FileErrors struct {
	keys    []string
	sources map[string][]protocol.Diagnostic
}

// NewErrors returns an empty error set.
func NewErrors() *Errors {
	return &Errors{files: map[string]*FileErrors{}}
}

// File returns the diagnostics recorded for file, or nil.
func (e *Errors) File(file string) *FileErrors {
	if e == nil {
		return nil
	}
	return e.files[file]
}

// Files returns the files with recorded diagnostics, in no particular order.
func (e *Errors) Files() []string {
	if e == nil {
		return nil
	}
	files := make([]string, 0, len(e.files))
	for f := range e.files {
		files = append(files, f)
	}
	return files
}

// HasErrors reports whether any source has a non-empty set for file.
func (e *Errors) HasErrors(file string) bool {
	fe := e.File(file)
	if fe == nil {
		return false
	}
	for _, errs := range fe.sources {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// Set returns a copy with key's diagnostics for file replaced by errs. A
// nil errs is stored as an empty slice so the entry stays an array.
func (e *Errors) Set(key, file string, errs []protocol.Diagnostic) *Errors {
	if errs == nil {
		errs = []protocol.Diagnostic{}
	}

	files := make(map[string]*FileErrors, len(e.files)+1)
	for f, fe := range e.files {
		files[f] = fe
	}

	old := files[file]
	fe := &FileErrors{sources: map[string][]protocol.Diagnostic{}}
	if old != nil {
		fe.keys = append(fe.keys, old.keys...)
		for k, v := range old.sources {
			fe.sources[k] = v
		}
	}
	if _, ok := fe.sources[key]; !ok {
		fe.keys = append(fe.keys, key)
	}
	fe.sources[key] = errs
	files[file] = fe

	return &Errors{files: files}
}

// Keys returns the source keys in first-report order.
func (fe *FileErrors) Keys() []string {
	if fe == nil {
		return nil
	}
	keys := make([]string, len(fe.keys))
	copy(keys, fe.keys)
	return keys
}

// Get returns the diagnostics reported by key.
func (fe *FileErrors) Get(key string) ([]protocol.Diagnostic, bool) {
	if fe == nil {
		return nil, false
	}
	errs, ok := fe.sources[key]
	return errs, ok
}

// All flattens every source's diagnostics in source-key order.
func (fe *FileErrors) All() []protocol.Diagnostic {
	if fe == nil {
		return nil
	}
	var all []protocol.Diagnostic
	for _, k := range fe.keys {
		all = append(all, fe.sources[k]...)
	}
	return all
}
