package vm

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// executeDepthMax bounds nested EXECUTE recursion (spec.md §4.8, §5).
const executeDepthMax = 16

// Interpreter holds all mutable machine state named in spec.md §4.8:
// instruction pointer, halt flag, exit code, execute-depth, data stack,
// call stack, code segment, label table, virtual disk, RNG, wall clock,
// and I/O provider.
type Interpreter struct {
	ds     *dataStack
	cs     *callStack
	code   *codeSegment
	labels *labelTable
	disk   *Disk
	io     IOProvider
	rng    *rand.Rand
	clock  func() time.Time

	ip        int
	haltFlag  bool
	exitCode  int32
	execDepth int
	debug     bool
}

// NewInterpreter wires together a freshly assembled program with the
// ambient resources (disk, I/O) it runs against.
func NewInterpreter(code *codeSegment, labels *labelTable, entry int, disk *Disk, io IOProvider) *Interpreter {
	vm := &Interpreter{
		ds:     newDataStack(),
		cs:     newCallStack(),
		code:   code,
		labels: labels,
		disk:   disk,
		io:     io,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:  time.Now,
		ip:     entry,
	}
	return vm
}

func (vm *Interpreter) SetDebug(on bool) {
	vm.debug = on
	vm.io.SetDebug(on)
}

// Run drives the fetch/dispatch loop until haltFlag is set or a runtime
// error occurs.
func (vm *Interpreter) Run(ctx context.Context) (int32, error) {
	for !vm.Halted() {
		if err := vm.Step(ctx); err != nil {
			return 0, err
		}
	}
	return vm.exitCode, nil
}

// Halted reports whether the halt flag is set — true once the program
// has run EXIT or a SLEEP was interrupted. A Step that fails with an
// error does not set it.
func (vm *Interpreter) Halted() bool { return vm.haltFlag }

// IP returns the current instruction pointer, for a debugger's
// breakpoint checks.
func (vm *Interpreter) IP() int { return vm.ip }

// ExitCode returns the exit code recorded when the halt flag was set (the
// EXIT operand, or 1 for an interrupted SLEEP); 0 before that.
func (vm *Interpreter) ExitCode() int32 { return vm.exitCode }

// CurrentOpName names the instruction Step would execute next, for a
// debugger prompt; empty once halted.
func (vm *Interpreter) CurrentOpName() string {
	if vm.Halted() {
		return ""
	}
	rec, err := vm.code.get(vm.ip)
	if err != nil {
		return ""
	}
	return rec.displayName()
}

// StackSnapshot renders the data stack via the same formatter the debug
// trace uses, for the debugger's `stack` command.
func (vm *Interpreter) StackSnapshot() string { return vm.ds.toString() }

// Step executes exactly one instruction. Pre-increment discipline: ip is
// advanced past the instruction being executed before that instruction
// runs, so a CALL naturally captures the address of the following
// instruction. Used both by Run's tight loop and by the interactive
// single-step debugger.
func (vm *Interpreter) Step(ctx context.Context) error {
	if vm.ip < 0 || vm.ip >= vm.code.size() {
		return errors.Wrapf(ErrIPOutOfRange, "ip %d", vm.ip)
	}
	rec, err := vm.code.get(vm.ip)
	if err != nil {
		return err
	}
	vm.ip++

	if vm.debug {
		vm.io.Debug(vm.ds.toString(), rec.displayName())
	}

	if err := vm.dispatch(ctx, rec); err != nil {
		return wrapRuntime(rec.displayName(), err)
	}
	return nil
}

func (vm *Interpreter) dispatch(ctx context.Context, rec codeRecord) error {
	switch rec.kind {
	case recordPushConst:
		return vm.ds.push(rec.constVal)
	case recordOp:
		return rec.op.run(ctx, vm)
	default:
		return ErrCorruptPlaceholder
	}
}

func (vm *Interpreter) exit(code int32) {
	vm.haltFlag = true
	vm.exitCode = code
}

// execute implements the EXECUTE instruction's nested-interpreter
// semantics (spec.md §4.8). src is assembled from scratch with fresh
// label table, code segment and call stack; the outer triple
// (code, call stack, ip) plus haltFlag is saved and restored around the
// nested run regardless of outcome. Nested failures are reported to the
// error stream, not propagated; the nested exit code (0 on nested
// failure) is pushed to the outer data stack.
func (vm *Interpreter) execute(ctx context.Context, src string) error {
	if vm.execDepth >= executeDepthMax {
		return ErrExecDepthExceeded
	}

	savedCode, savedLabels, savedCS, savedIP, savedHalt, savedExit := vm.code, vm.labels, vm.cs, vm.ip, vm.haltFlag, vm.exitCode
	vm.execDepth++
	defer func() {
		vm.code, vm.labels, vm.cs, vm.ip, vm.haltFlag, vm.exitCode = savedCode, savedLabels, savedCS, savedIP, savedHalt, savedExit
		vm.execDepth--
	}()

	nestedCode, nestedLabels, nestedEntry, asmErr := Assemble(src)
	var nestedExit int32
	if asmErr != nil {
		vm.io.ReportError(asmErr.Error())
	} else {
		vm.code = nestedCode
		vm.labels = nestedLabels
		vm.cs = newCallStack()
		vm.ip = nestedEntry
		vm.haltFlag = false
		vm.exitCode = 0

		exit, runErr := vm.Run(ctx)
		if runErr != nil {
			vm.io.ReportError(runErr.Error())
		} else {
			nestedExit = exit
		}
	}

	return vm.ds.push(Int(nestedExit))
}
