// Package selectors derives view data from the UI state.
//
// Selectors are pure. The memoized ones recompute only when their inputs
// change identity, so callers get the same slice back for the same state.
package selectors

import (
	"github.com/dshills/oxbow/internal/protocol"
	"github.com/dshills/oxbow/internal/ui/state"
)

// EmptyErrors is returned wherever there are no diagnostics to show.
// Callers must not append to it. It has its own backing array so it can be
// told apart from other empty slices by identity.
var EmptyErrors = make([]protocol.Diagnostic, 0, 1)[:0:0]

// AreCompletionsVisible reports whether the completion popup should show.
// A single entry is hidden when it would insert exactly what was typed.
func AreCompletionsVisible(s *state.State) bool {
	ac := s.AutoCompletion
	if ac == nil || len(ac.Entries) == 0 {
		return false
	}
	if len(ac.Entries) > 1 {
		return true
	}
	selected, _ := GetSelectedCompletion(s)
	return ac.Base != selected
}

// GetSelectedCompletion returns the text of the selected entry. It reports
// false when there is no popup or the selection is out of range.
func GetSelectedCompletion(s *state.State) (string, bool) {
	ac := s.AutoCompletion
	if ac == nil || ac.SelectedIndex < 0 || ac.SelectedIndex >= len(ac.Entries) {
		return "", false
	}
	return ac.Entries[ac.SelectedIndex].Text(), true
}

// GetAllBuffers returns listed, visible buffers in open order.
func GetAllBuffers(buffers state.Buffers) []*state.Buffer {
	var result []*state.Buffer
	for _, id := range buffers.AllIDs {
		buf := buffers.ByID[id]
		if buf != nil && !buf.Hidden && buf.Listed {
			result = append(result, buf)
		}
	}
	return result
}

// GetBufferByFilename returns the first listed buffer showing file, or nil.
func GetBufferByFilename(file string, buffers state.Buffers) *state.Buffer {
	for _, buf := range GetAllBuffers(buffers) {
		if buf.File == file {
			return buf
		}
	}
	return nil
}

// GetErrors returns the diagnostics of every file.
func GetErrors(s *state.State) *state.Errors {
	return s.Errors
}

// GetActiveWindow returns the active window, or nil.
func GetActiveWindow(s *state.State) *state.Window {
	if s.Windows.Active == 0 {
		return nil
	}
	return s.Windows.ByID[s.Windows.Active]
}

// GetQuickInfo returns cached quick info when it was recorded at the
// active window's exact position.
func GetQuickInfo(s *state.State) *protocol.QuickInfo {
	win := GetActiveWindow(s)
	qi := s.QuickInfo
	if win == nil || qi == nil {
		return nil
	}
	if qi.FilePath != win.File || qi.Line != win.Line || qi.Column != win.Column {
		return nil
	}
	data := qi.Data
	return &data
}

// GetFontPixelWidthHeight returns the cell size in pixels.
func GetFontPixelWidthHeight(s *state.State) state.FontMetrics {
	return s.Font
}

// GetForegroundBackgroundColor returns the default color pair.
func GetForegroundBackgroundColor(s *state.State) state.Colors {
	return s.Colors
}

// GetActiveWindowScreenDimensions returns the active window's area in
// cells, or the zero rectangle.
var GetActiveWindowScreenDimensions = CreateSelector(GetActiveWindow,
	func(win *state.Window) state.Rectangle {
		if win == nil || win.Dimensions == nil {
			return state.Rectangle{}
		}
		return *win.Dimensions
	})

// GetActiveWindowPixelDimensions returns the active window's area in pixels.
var GetActiveWindowPixelDimensions = CreateSelector2(GetActiveWindowScreenDimensions, GetFontPixelWidthHeight,
	func(dim state.Rectangle, font state.FontMetrics) state.Rectangle {
		return state.Rectangle{
			X:      dim.X * font.PixelWidth,
			Y:      dim.Y * font.PixelHeight,
			Width:  dim.Width * font.PixelWidth,
			Height: dim.Height * font.PixelHeight,
		}
	})

// GetErrorsForActiveFile flattens every source's diagnostics for the
// active window's file.
var GetErrorsForActiveFile = CreateSelector2(GetActiveWindow, GetErrors, errorsForWindow)

// GetErrorsForPosition returns the active file's diagnostics whose range
// covers the cursor.
var GetErrorsForPosition = CreateSelector2(GetActiveWindow, GetErrors,
	func(win *state.Window, errs *state.Errors) []protocol.Diagnostic {
		if win == nil {
			return EmptyErrors
		}
		var result []protocol.Diagnostic
		// Window coordinates are 1-based.
		line, column := win.Line-1, win.Column-1
		for _, d := range errorsForWindow(win, errs) {
			if d.Range.Contains(line, column) {
				result = append(result, d)
			}
		}
		if len(result) == 0 {
			return EmptyErrors
		}
		return result
	})

func errorsForWindow(win *state.Window, errs *state.Errors) []protocol.Diagnostic {
	if win == nil || win.File == "" {
		return EmptyErrors
	}
	all := errs.File(win.File).All()
	if len(all) == 0 {
		return EmptyErrors
	}
	return all
}
