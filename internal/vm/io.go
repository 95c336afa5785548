package vm

// LogLevel mirrors the GLOSSARY's log-level table: 0=WARNING, 1=EVENT,
// 2=INFO, 3=VERBOSE. A message at level L is emitted iff L <= verbosity,
// a decision the IOProvider implementation owns, not the interpreter.
type LogLevel int32

const (
	LogWarning LogLevel = iota
	LogEvent
	LogInfo
	LogVerbose
)

func (l LogLevel) valid() bool { return l >= LogWarning && l <= LogVerbose }

// IOProvider is the narrow interface spec.md §6 describes: the core
// depends on it and never reaches for os.Stdin/os.Stdout/a logging
// library directly. cmd/rvm supplies the zap/color-backed production
// implementation; tests supply a buffer-backed one.
type IOProvider interface {
	GetLine() (string, error)
	Print(v Value)
	Error(v Value)
	Log(v Value, level LogLevel) error
	LogText(s string, level LogLevel) error
	SetDebug(on bool)
	Debug(stackSnapshot string, opName string)

	// ReportError surfaces an internal diagnostic string (e.g. a failed
	// nested EXECUTE) to the error stream. Distinct from Error(Value),
	// which is the ERROR instruction's user-facing sink.
	ReportError(msg string)
}
