// Package ioprovider is the production implementation of vm.IOProvider:
// zap-backed structured logging, a color-aware debug tracer, and plain
// stream I/O. internal/vm never imports this package or any of its
// dependencies directly — it only depends on the narrow IOProvider
// interface, which this package satisfies.
package ioprovider

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"rvm/internal/vm"
)

// Provider wraps three streams (out/err/log) and one input reader, the
// same shape as the teacher's stdout/stdin/debugOut struct.
type Provider struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
	runID  string

	useColor bool
	debug    bool
	trace    *color.Color
}

// New builds a Provider. runID is attached to every log line the
// Provider writes, as the run_id field (cmd/rvm passes a uuid).
func New(in io.Reader, out, errOut io.Writer, logger *zap.Logger, runID string, useColor bool) *Provider {
	return &Provider{
		in:       bufio.NewReader(in),
		out:      out,
		errOut:   errOut,
		logger:   logger,
		runID:    runID,
		useColor: useColor,
		trace:    color.New(color.FgCyan),
	}
}

func (p *Provider) GetLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *Provider) Print(v vm.Value) { fmt.Fprint(p.out, v.DisplayString()) }
func (p *Provider) Error(v vm.Value) { fmt.Fprint(p.errOut, v.DisplayString()) }

func (p *Provider) Log(v vm.Value, level vm.LogLevel) error {
	return p.logAt(level, v.ToString())
}

func (p *Provider) LogText(s string, level vm.LogLevel) error {
	return p.logAt(level, s)
}

func (p *Provider) logAt(level vm.LogLevel, msg string) error {
	fields := []zap.Field{zap.String("run_id", p.runID)}
	switch level {
	case vm.LogWarning:
		p.logger.Warn(msg, fields...)
	case vm.LogEvent:
		p.logger.Info(msg, append(fields, zap.String("kind", "event"))...)
	case vm.LogInfo:
		p.logger.Info(msg, fields...)
	case vm.LogVerbose:
		p.logger.Debug(msg, fields...)
	default:
		return vm.ErrInvalidLogLevel
	}
	return nil
}

func (p *Provider) ReportError(msg string) { fmt.Fprintln(p.errOut, msg) }

func (p *Provider) SetDebug(on bool) { p.debug = on }

func (p *Provider) Debug(stackSnapshot, opName string) {
	if !p.debug {
		return
	}
	line := fmt.Sprintf("[%-10s] %s", opName, stackSnapshot)
	if p.useColor {
		p.trace.Fprintln(p.errOut, line)
		return
	}
	fmt.Fprintln(p.errOut, line)
}
