package vm

import (
	"bufio"
	"bytes"
	"strings"
)

// BufferIO is an IOProvider backed entirely by in-memory buffers. It
// exists for tests (mirroring the teacher's debug-mode constructor,
// which swaps stdout for a strings.Builder-backed writer instead of
// os.Stdout) and has no ambient-stack dependencies of its own.
type BufferIO struct {
	in     *bufio.Reader
	Out    bytes.Buffer
	Err    bytes.Buffer
	LogBuf bytes.Buffer

	debug    bool
	DebugLog []string
}

func NewBufferIO(input string) *BufferIO {
	return &BufferIO{in: bufio.NewReader(strings.NewReader(input))}
}

func (b *BufferIO) GetLine() (string, error) {
	line, err := b.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (b *BufferIO) Print(v Value) { b.Out.WriteString(v.DisplayString()) }
func (b *BufferIO) Error(v Value) { b.Err.WriteString(v.DisplayString()) }

func (b *BufferIO) Log(v Value, level LogLevel) error {
	if !level.valid() {
		return ErrInvalidLogLevel
	}
	b.LogBuf.WriteString(v.ToString())
	return nil
}

func (b *BufferIO) LogText(s string, level LogLevel) error {
	if !level.valid() {
		return ErrInvalidLogLevel
	}
	b.LogBuf.WriteString(s)
	return nil
}

func (b *BufferIO) ReportError(msg string) { b.Err.WriteString(msg) }

func (b *BufferIO) SetDebug(on bool) { b.debug = on }

func (b *BufferIO) Debug(stackSnapshot, opName string) {
	if !b.debug {
		return
	}
	b.DebugLog = append(b.DebugLog, opName+" | "+stackSnapshot)
}
