package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Source supplies commands to the run loop.
// Next returns io.EOF once the source is exhausted. A parse error for one
// line does not end the source.
type Source interface {
	Next() (Command, error)
	Close() error
}

// MaxLineBytes is the longest line a LineSource accepts.
const MaxLineBytes = 1 << 20

// LineSource reads one command per line. Blank lines and lines starting
// with '#' are skipped. A read error is returned by every later call.
type LineSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	err     error
}

// NewLineSource creates a LineSource over r. If r is an io.Closer it is
// closed by Close.
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{scanner: bufio.NewScanner(r)}
	s.scanner.Buffer(make([]byte, 0, 4096), MaxLineBytes)
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next returns the next command.
func (s *LineSource) Next() (Command, error) {
	if s.err != nil {
		return Command{}, s.err
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return Parse(line)
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("read command: %w", err)
		return Command{}, s.err
	}
	return Command{}, io.EOF
}

// Close releases the underlying reader.
func (s *LineSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// ScriptSource is a test double that returns scripted command lines.
type ScriptSource struct {
	// Lines are parsed in order, one per call to Next.
	Lines []string

	// index tracks current position in Lines
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Next()
	ReadError error
}

// NewScriptSource creates a ScriptSource with the given lines.
func NewScriptSource(lines ...string) *ScriptSource {
	return &ScriptSource{Lines: lines}
}

// Next parses the next scripted line.
func (s *ScriptSource) Next() (Command, error) {
	if s.ReadError != nil {
		return Command{}, s.ReadError
	}
	if s.Closed {
		return Command{}, errors.New("source closed")
	}
	if s.index >= len(s.Lines) {
		return Command{}, io.EOF
	}
	line := s.Lines[s.index]
	s.index++
	return Parse(line)
}

// Close marks the source as closed.
func (s *ScriptSource) Close() error {
	s.Closed = true
	return nil
}

// Reset rewinds the script.
func (s *ScriptSource) Reset() {
	s.index = 0
	s.Closed = false
}
