package vm

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// instruction is the "named_op" variant of the ops-as-values design
// (spec.md §9): a display name plus a run capability closing over no
// state of its own, operating entirely on the Interpreter passed to it.
// PUSH is deliberately absent — the assembler synthesises a
// recordPushConst directly instead of going through this table.
type instruction struct {
	name string
	run  func(ctx context.Context, vm *Interpreter) error
}

var instructionTable = map[string]*instruction{}

func register(name string, run func(ctx context.Context, vm *Interpreter) error) {
	instructionTable[name] = &instruction{name: name, run: run}
}

func lookupInstruction(name string) (*instruction, bool) {
	in, ok := instructionTable[strings.ToUpper(name)]
	return in, ok
}

func init() {
	registerStackOps()
	registerControlOps()
	registerIOOps()
	registerConversionOps()
	registerPredicateOps()
	registerLogicOps()
	registerBitwiseOps()
	registerComparisonOps()
	registerMathOps()
	registerMiscOps()
	registerDiskOps()
}

// --- stack (spec.md §4.5) ---------------------------------------------

func registerStackOps() {
	register("POP", func(_ context.Context, vm *Interpreter) error {
		_, err := vm.ds.pop()
		return err
	})
	register("DUP", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.dup()
	})
	register("SWAP", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.swap()
	})
	register("ROTATE", func(_ context.Context, vm *Interpreter) error {
		clockwise, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		n, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.rotate(int(n), clockwise)
	})
	register("PICK", func(_ context.Context, vm *Interpreter) error {
		k, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.pick(int(k))
	})
	register("PUT", func(_ context.Context, vm *Interpreter) error {
		k, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.put(v, int(k))
	})
	register("DEPTH", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.push(Int(int32(vm.ds.depth())))
	})
	register("POPN", func(_ context.Context, vm *Interpreter) error {
		n, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.Wrap(ErrInvalidRangeSize, "POPN requires a strictly positive argument")
		}
		for i := int32(0); i < n; i++ {
			if _, err := vm.ds.pop(); err != nil {
				return err
			}
		}
		return nil
	})
	register("DUPN", func(_ context.Context, vm *Interpreter) error {
		n, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.Wrap(ErrInvalidRangeSize, "DUPN requires a strictly positive argument")
		}
		// Duplicates the top n items as a block, preserving their order,
		// per the documented contract (spec.md §9 open question (c): the
		// reference instead re-picks the same top item n times).
		if vm.ds.depth() < int(n) {
			return ErrStackUnderflow
		}
		base := vm.ds.depth() - int(n)
		for i := 0; i < int(n); i++ {
			if err := vm.ds.push(vm.ds.values[base+i]); err != nil {
				return err
			}
		}
		return nil
	})
	register("JOIN", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.join()
	})
	register("SPLIT", func(_ context.Context, vm *Interpreter) error {
		i, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.split(int(i))
	})
}

// --- control flow (spec.md §4.6, §4.8) ---------------------------------

func registerControlOps() {
	register("JUMP", func(_ context.Context, vm *Interpreter) error {
		lbl, err := vm.ds.popLabel()
		if err != nil {
			return err
		}
		vm.ip = lbl.LabelIndex()
		return nil
	})
	register("CJUMP", func(_ context.Context, vm *Interpreter) error {
		lbl, err := vm.ds.popLabel()
		if err != nil {
			return err
		}
		cond, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		if cond {
			vm.ip = lbl.LabelIndex()
		}
		return nil
	})
	register("CALL", func(_ context.Context, vm *Interpreter) error {
		lbl, err := vm.ds.popLabel()
		if err != nil {
			return err
		}
		if err := vm.cs.push(vm.ip); err != nil {
			return err
		}
		vm.ip = lbl.LabelIndex()
		return nil
	})
	register("RETURN", func(_ context.Context, vm *Interpreter) error {
		addr, err := vm.cs.pop()
		if err != nil {
			return err
		}
		vm.ip = addr
		return nil
	})
	register("EXIT", func(_ context.Context, vm *Interpreter) error {
		code, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		vm.exit(code)
		return nil
	})
	register("ABORT", func(_ context.Context, vm *Interpreter) error {
		msg, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return errors.Wrapf(ErrAbort, "%s", msg)
	})
	register("EXECUTE", func(ctx context.Context, vm *Interpreter) error {
		src, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return vm.execute(ctx, src)
	})
}

// --- I/O (spec.md §6) ---------------------------------------------------

func registerIOOps() {
	register("GETLINE", func(_ context.Context, vm *Interpreter) error {
		line, err := vm.io.GetLine()
		if err != nil {
			return err
		}
		return vm.ds.pushCharRange(line)
	})
	register("PRINT", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		vm.io.Print(v)
		return nil
	})
	register("ERROR", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		vm.io.Error(v)
		return nil
	})
	register("PRINTSTR", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		for i := 0; i < len(s); i++ {
			vm.io.Print(Char(s[i]))
		}
		return nil
	})
	register("ERRORSTR", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		for i := 0; i < len(s); i++ {
			vm.io.Error(Char(s[i]))
		}
		return nil
	})
	register("LOG", func(_ context.Context, vm *Interpreter) error {
		level, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if level < 0 || level > 3 {
			return errors.Wrapf(ErrInvalidLogLevel, "%d", level)
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.io.Log(v, LogLevel(level))
	})
	register("LOGSTR", func(_ context.Context, vm *Interpreter) error {
		level, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if level < 0 || level > 3 {
			return errors.Wrapf(ErrInvalidLogLevel, "%d", level)
		}
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return vm.io.LogText(s, LogLevel(level))
	})
}

// --- conversions (spec.md §4.6) -----------------------------------------

func registerConversionOps() {
	register("TOSTRING", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.pushCharRange(v.ToString())
	})
	register("STRTOI", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		n, perr := strconv.ParseInt(s, 10, 32)
		if perr != nil {
			return errors.Wrapf(ErrBadConversion, "STRTOI: %q", s)
		}
		return vm.ds.push(Int(int32(n)))
	})
	register("STRTOF", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return errors.Wrapf(ErrBadConversion, "STRTOF: %q", s)
		}
		return vm.ds.push(Float(f))
	})
	register("STRTOB", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(strings.EqualFold(s, "true")))
	})
	register("HEXTOI", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		n, perr := strconv.ParseUint(trimmed, 16, 32)
		if perr != nil {
			return errors.Wrapf(ErrBadConversion, "HEXTOI: %q", s)
		}
		return vm.ds.push(Int(int32(uint32(n))))
	})
	register("ITOHEX", func(_ context.Context, vm *Interpreter) error {
		i, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.pushCharRange(strconv.FormatUint(uint64(uint32(i)), 16))
	})
	register("ITOB", func(_ context.Context, vm *Interpreter) error {
		i, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(i != 0))
	})
	register("FTOB", func(_ context.Context, vm *Interpreter) error {
		f, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(f != 0.0))
	})
	register("BTOI", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		if b {
			return vm.ds.push(Int(1))
		}
		return vm.ds.push(Int(0))
	})
	register("ITOF", func(_ context.Context, vm *Interpreter) error {
		i, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Float(float64(i)))
	})
	register("FTOI", func(_ context.Context, vm *Interpreter) error {
		f, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(int32(f)))
	})
	register("ITOC", func(_ context.Context, vm *Interpreter) error {
		i, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Char(byte(i)))
	})
	register("CTOI", func(_ context.Context, vm *Interpreter) error {
		c, err := vm.ds.popChar()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(int32(c)))
	})
}

// --- predicates (spec.md §4.6) ------------------------------------------

var (
	reStrIsInt   = regexp.MustCompile(`^-?[0-9]{1,10}$`)
	reStrIsHex   = regexp.MustCompile(`(?i)^(0x)?[0-9a-f]{1,8}$`)
	reStrIsBool  = regexp.MustCompile(`(?i)^(true|false)$`)
)

func registerPredicateOps() {
	register("STRISINT", func(_ context.Context, vm *Interpreter) error {
		return strPredicate(vm, func(s string) bool {
			if !reStrIsInt.MatchString(s) {
				return false
			}
			_, err := strconv.ParseInt(s, 10, 32)
			return err == nil
		})
	})
	register("STRISHEX", func(_ context.Context, vm *Interpreter) error {
		return strPredicate(vm, reStrIsHex.MatchString)
	})
	register("STRISBOOL", func(_ context.Context, vm *Interpreter) error {
		return strPredicate(vm, reStrIsBool.MatchString)
	})
	register("STRISFLOAT", func(_ context.Context, vm *Interpreter) error {
		return strPredicate(vm, func(s string) bool {
			_, err := strconv.ParseFloat(s, 64)
			return err == nil
		})
	})
	register("ISBOOL", kindPredicate(KindBool))
	register("ISCHAR", kindPredicate(KindChar))
	register("ISINT", kindPredicate(KindInt))
	register("ISFLOAT", kindPredicate(KindFloat))
	register("ISLABEL", kindPredicate(KindLabel))
}

func strPredicate(vm *Interpreter, pred func(string) bool) error {
	s, err := vm.ds.popCharRange()
	if err != nil {
		return err
	}
	return vm.ds.push(Bool(pred(s)))
}

func kindPredicate(k Kind) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(v.Kind() == k))
	}
}

// --- logic (bool) --------------------------------------------------------

func registerLogicOps() {
	register("AND", boolBinOp(func(a, b bool) bool { return a && b }))
	register("OR", boolBinOp(func(a, b bool) bool { return a || b }))
	register("XOR", boolBinOp(func(a, b bool) bool { return a != b }))
	register("NOT", func(_ context.Context, vm *Interpreter) error {
		a, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(!a))
	})
}

func boolBinOp(f func(a, b bool) bool) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		a, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(f(a, b)))
	}
}

// --- bitwise (int) ---------------------------------------------------------

func registerBitwiseOps() {
	register("BAND", intBinOp(func(a, b int32) int32 { return a & b }))
	register("BOR", intBinOp(func(a, b int32) int32 { return a | b }))
	register("BXOR", intBinOp(func(a, b int32) int32 { return a ^ b }))
	register("SHL", intBinOp(func(a, b int32) int32 { return a << uint32(b) }))
	register("SHR", intBinOp(func(a, b int32) int32 { return a >> uint32(b) }))
	register("BNOT", func(_ context.Context, vm *Interpreter) error {
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(^a))
	})
}

// --- comparisons -----------------------------------------------------------

func registerComparisonOps() {
	register("EQUALS", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if a.Kind() != b.Kind() {
			return errors.Wrapf(ErrTypeMismatch, "EQUALS: %s vs %s", a.Kind(), b.Kind())
		}
		return vm.ds.push(Bool(a.Equal(b)))
	})
	register("FEQUALS", floatCompare(func(a, b float64) bool { return a == b }))
	register("ILT", intCompare(func(a, b int32) bool { return a < b }))
	register("ILTE", intCompare(func(a, b int32) bool { return a <= b }))
	register("IGT", intCompare(func(a, b int32) bool { return a > b }))
	register("IGTE", intCompare(func(a, b int32) bool { return a >= b }))
	register("FLT", floatCompare(func(a, b float64) bool { return a < b }))
	register("FLTE", floatCompare(func(a, b float64) bool { return a <= b }))
	register("FGT", floatCompare(func(a, b float64) bool { return a > b }))
	register("FGTE", floatCompare(func(a, b float64) bool { return a >= b }))
}

func intCompare(f func(a, b int32) bool) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(f(a, b)))
	}
}

func floatCompare(f func(a, b float64) bool) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		a, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(f(a, b)))
	}
}

// --- math --------------------------------------------------------------

func registerMathOps() {
	register("IADD", intBinOp(func(a, b int32) int32 { return a + b }))
	register("ISUB", intBinOp(func(a, b int32) int32 { return a - b }))
	register("IMUL", intBinOp(func(a, b int32) int32 { return a * b }))
	register("IDIV", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if b == 0 {
			return ErrDivisionByZero
		}
		return vm.ds.push(Int(a / b))
	})
	register("MOD", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if b == 0 {
			return ErrDivisionByZero
		}
		return vm.ds.push(Int(a % b))
	})
	register("IPOW", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(int32(math.Round(math.Pow(float64(a), float64(b))))))
	})
	register("INEG", func(_ context.Context, vm *Interpreter) error {
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(-a))
	})
	register("FADD", floatBinOp(func(a, b float64) float64 { return a + b }))
	register("FSUB", floatBinOp(func(a, b float64) float64 { return a - b }))
	register("FMUL", floatBinOp(func(a, b float64) float64 { return a * b }))
	register("FDIV", func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		a, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		if b == 0.0 {
			return ErrDivisionByZero
		}
		return vm.ds.push(Float(a / b))
	})
	register("FPOW", floatBinOp(math.Pow))
	register("FNEG", func(_ context.Context, vm *Interpreter) error {
		a, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Float(-a))
	})
}

func intBinOp(f func(a, b int32) int32) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		a, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(f(a, b)))
	}
}

func floatBinOp(f func(a, b float64) float64) func(context.Context, *Interpreter) error {
	return func(_ context.Context, vm *Interpreter) error {
		b, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		a, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Float(f(a, b)))
	}
}

// --- misc: randomness, time, whitespace char literals --------------------

func registerMiscOps() {
	register("RAND", func(_ context.Context, vm *Interpreter) error {
		n, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.Wrap(ErrInvalidRangeSize, "RAND requires a strictly positive argument")
		}
		return vm.ds.push(Int(vm.rng.Int31n(n)))
	})
	register("SLEEP", func(ctx context.Context, vm *Interpreter) error {
		ms, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		if ms <= 0 {
			return errors.Wrap(ErrInvalidRangeSize, "SLEEP requires > 0 ms")
		}
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			vm.exit(1)
			return nil
		}
	})
	register("GETTIME", func(_ context.Context, vm *Interpreter) error {
		now := vm.clock()
		if err := vm.ds.push(Int(int32(now.Hour()))); err != nil {
			return err
		}
		if err := vm.ds.push(Int(int32(now.Minute()))); err != nil {
			return err
		}
		return vm.ds.push(Int(int32(now.Second())))
	})
	register("GETDATE", func(_ context.Context, vm *Interpreter) error {
		now := vm.clock()
		if err := vm.ds.push(Int(int32(now.Year()))); err != nil {
			return err
		}
		if err := vm.ds.push(Int(int32(now.Month()))); err != nil {
			return err
		}
		return vm.ds.push(Int(int32(now.Day())))
	})
	register("SPACE", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.push(Char(' '))
	})
	register("TAB", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.push(Char('\t'))
	})
	register("NEWLINE", func(_ context.Context, vm *Interpreter) error {
		return vm.ds.push(Char('\n'))
	})
}

// --- virtual disk (spec.md §3, §6) ---------------------------------------

func registerDiskOps() {
	register("MOUNT", func(_ context.Context, vm *Interpreter) error {
		sectorCount, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		sectorSize, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		name, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return vm.disk.Mount(name, name, int(sectorSize), int(sectorCount))
	})
	register("UNMOUNT", func(_ context.Context, vm *Interpreter) error {
		return vm.disk.Unmount()
	})
	register("SEEK", func(_ context.Context, vm *Interpreter) error {
		pos, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.disk.Seek(int64(pos))
	})
	register("READBOOL", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.disk.ReadBool()
		if err != nil {
			return err
		}
		return vm.ds.push(Bool(v))
	})
	register("WRITEBOOL", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.popBool()
		if err != nil {
			return err
		}
		return vm.disk.WriteBool(v)
	})
	register("READCHAR", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.disk.ReadChar()
		if err != nil {
			return err
		}
		return vm.ds.push(Char(v))
	})
	register("WRITECHAR", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.popChar()
		if err != nil {
			return err
		}
		return vm.disk.WriteChar(v)
	})
	register("READINT", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.disk.ReadInt()
		if err != nil {
			return err
		}
		return vm.ds.push(Int(v))
	})
	register("WRITEINT", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.popInt()
		if err != nil {
			return err
		}
		return vm.disk.WriteInt(v)
	})
	register("READFLOAT", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.disk.ReadFloat()
		if err != nil {
			return err
		}
		return vm.ds.push(Float(v))
	})
	register("WRITEFLOAT", func(_ context.Context, vm *Interpreter) error {
		v, err := vm.ds.popFloat()
		if err != nil {
			return err
		}
		return vm.disk.WriteFloat(v)
	})
	register("READSTR", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.disk.ReadCharRange()
		if err != nil {
			return err
		}
		return vm.ds.pushCharRange(s)
	})
	register("WRITESTR", func(_ context.Context, vm *Interpreter) error {
		s, err := vm.ds.popCharRange()
		if err != nil {
			return err
		}
		return vm.disk.WriteCharRange(s)
	})
}
