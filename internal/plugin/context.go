package plugin

// EventContext is a snapshot of the cursor and buffer at the moment an editor
// event fired. Lines and columns are 1-based, as reported by the editor.
type EventContext struct {
	BufferFullPath string `json:"bufferFullPath"`
	Line           int    `json:"line"`
	Column         int    `json:"column"`
	Byte           int    `json:"byte"`
	Filetype       string `json:"filetype"`
}

// SamePosition reports whether c and other refer to the same buffer, line
// and column. Byte offset and filetype are ignored.
func (c EventContext) SamePosition(other EventContext) bool {
	return c.BufferFullPath == other.BufferFullPath &&
		c.Line == other.Line &&
		c.Column == other.Column
}
