package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxFrameSize bounds a single frame body.
const MaxFrameSize = 64 << 20

// FrameConn reads and writes whole frames.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// StreamConn frames documents with Content-Length headers.
type StreamConn struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	mu     sync.Mutex
	closed atomic.Bool
}

// NewStreamConn creates a framed connection. c may be nil.
func NewStreamConn(r io.Reader, w io.Writer, c io.Closer) *StreamConn {
	return &StreamConn{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
		closer: c,
	}
}

// WriteFrame writes data with a Content-Length header.
func (s *StreamConn) WriteFrame(data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadFrame reads the next frame body. It is not safe for concurrent use.
func (s *StreamConn) ReadFrame() ([]byte, error) {
	contentLength := -1
	sawHeader := false
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if !sawHeader {
				// Tolerate blank lines between frames.
				continue
			}
			break
		}
		sawHeader = true
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "content-length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrMissingContentLength, line)
			}
			contentLength = n
		}
		// Ignore Content-Type and other headers
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}
	if contentLength > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Close closes the underlying connection.
func (s *StreamConn) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
