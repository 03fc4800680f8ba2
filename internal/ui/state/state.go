package state

import "github.com/dshills/oxbow/internal/protocol"

// Buffer is an open buffer.
type Buffer struct {
	ID       int    `json:"id"`
	File     string `json:"file"`
	Modified bool   `json:"modified,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	Listed   bool   `json:"listed"`
	Version  int    `json:"version,omitempty"`
}

// Buffers indexes buffers by id. AllIDs keeps the order buffers were opened.
type Buffers struct {
	ByID   map[int]*Buffer
	AllIDs []int
}

// Rectangle is an area measured in cells or pixels.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Window is an editor window. Line and Column are 1-based.
type Window struct {
	ID         int        `json:"id"`
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Dimensions *Rectangle `json:"dimensions,omitempty"`
}

// Windows indexes windows by id. Active is 0 when no window is active.
type Windows struct {
	ByID   map[int]*Window
	Active int
}

// AutoCompletion is the completion popup.
type AutoCompletion struct {
	Base          string
	Entries       []protocol.CompletionItem
	SelectedIndex int
}

// QuickInfo is hover data cached for the position it was requested at.
type QuickInfo struct {
	FilePath string
	Line     int
	Column   int
	Data     protocol.QuickInfo
}

// FontMetrics is the size of a character cell in pixels.
type FontMetrics struct {
	PixelWidth  float64
	PixelHeight float64
}

// Colors is the default text color pair.
type Colors struct {
	Foreground string
	Background string
}

// State is an immutable snapshot of the UI.
type State struct {
	Buffers        Buffers
	Windows        Windows
	Errors         *Errors
	Highlights     *Highlights
	AutoCompletion *AutoCompletion
	DetailedEntry  *protocol.CompletionItem
	QuickInfo      *QuickInfo
	Font           FontMetrics
	Colors         Colors
}

// New returns the empty state.
func New() *State {
	return &State{
		Buffers:    Buffers{ByID: map[int]*Buffer{}},
		Windows:    Windows{ByID: map[int]*Window{}},
		Errors:     NewErrors(),
		Highlights: NewHighlights(),
		Font:       FontMetrics{PixelWidth: 1, PixelHeight: 1},
	}
}

func (s *State) clone() *State {
	c := *s
	return &c
}

// Buffer returns the buffer with id, or nil.
func (s *State) Buffer(id int) *Buffer {
	return s.Buffers.ByID[id]
}

// Window returns the window with id, or nil.
func (s *State) Window(id int) *Window {
	return s.Windows.ByID[id]
}
