package vm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	reDecimalInt = regexp.MustCompile(`^[+-]?[0-9]+$`)
	reHexToken   = regexp.MustCompile(`(?i)^(0x)?[0-9a-f]{1,8}$`)
	reLabelDecl  = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_]*)$`)
)

// assembler runs the two passes described in spec.md §4.7, token by
// token, in the exact disambiguation order pass 1 requires.
type assembler struct {
	code      *codeSegment
	labels    *labelTable
	entry     int
	beginSet  bool
}

// Assemble turns source text into a runnable (codeSegment, labelTable,
// entryIndex) triple, or a *AssemblyError on any failure.
func Assemble(src string) (*codeSegment, *labelTable, int, error) {
	a := &assembler{code: newCodeSegment(), labels: newLabelTable(), entry: -1}

	for _, rawLine := range strings.Split(src, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ";") {
			continue
		}
		if strings.HasPrefix(trimmed, `""`) {
			a.emitStringLiteral(trimmed[2:])
			continue
		}
		for _, tok := range strings.Fields(trimmed) {
			if err := a.processToken(tok); err != nil {
				return nil, nil, 0, err
			}
		}
	}

	if a.entry < 0 || a.entry >= a.code.size() {
		return nil, nil, 0, wrapAssembly(ErrBeginMissing)
	}

	if err := a.resolvePlaceholders(); err != nil {
		return nil, nil, 0, err
	}

	return a.code, a.labels, a.entry, nil
}

// emitStringLiteral is pass-1 step 2: each character becomes a push (with
// space/tab routed through the built-in SPACE/TAB ops), followed by a
// push of the length.
func (a *assembler) emitStringLiteral(s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			a.appendOp("SPACE")
		case '\t':
			a.appendOp("TAB")
		default:
			a.pushConst(Char(s[i]))
		}
	}
	a.pushConst(Int(int32(len(s))))
}

func (a *assembler) pushConst(v Value) {
	a.code.append(codeRecord{kind: recordPushConst, constVal: v})
}

func (a *assembler) appendOp(name string) {
	in, ok := lookupInstruction(name)
	if !ok {
		panic("asm: unknown built-in op " + name)
	}
	a.code.append(codeRecord{kind: recordOp, op: in})
}

func (a *assembler) appendPlaceholder(symbol string) {
	a.code.append(codeRecord{kind: recordPlaceholder, symbol: symbol})
}

// processToken implements pass-1 steps 3-12, in order, first match wins.
func (a *assembler) processToken(tok string) error {
	// 3. bool literal
	if strings.EqualFold(tok, "true") {
		a.pushConst(Bool(true))
		return nil
	}
	if strings.EqualFold(tok, "false") {
		a.pushConst(Bool(false))
		return nil
	}

	// 4. signed decimal integer
	if reDecimalInt.MatchString(tok) {
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return wrapAssembly(errors.Wrapf(ErrParse, "integer literal %q out of range", tok))
		}
		a.pushConst(Int(int32(n)))
		return nil
	}

	// 5. hex token
	if reHexToken.MatchString(tok) {
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X"), 16, 32)
		if err != nil {
			return wrapAssembly(errors.Wrapf(ErrParse, "hex literal %q out of range", tok))
		}
		a.pushConst(Int(int32(uint32(n))))
		return nil
	}

	// 6. float token
	if strings.ContainsAny(tok, ".eE") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			a.pushConst(Float(f))
			return nil
		}
	}

	// 7. single-quoted char
	if strings.HasPrefix(tok, "'") {
		if len(tok) != 3 || tok[2] != '\'' {
			return wrapAssembly(errors.Wrapf(ErrParse, "malformed character literal %q", tok))
		}
		if tok[1] == ' ' {
			return wrapAssembly(errors.Wrapf(ErrParse, "literal space is not a valid character literal %q; use SPACE", tok))
		}
		a.pushConst(Char(tok[1]))
		return nil
	}

	// 8. label declaration
	if m := reLabelDecl.FindStringSubmatch(tok); m != nil {
		name := m[1]
		if _, isOp := lookupInstruction(name); isOp {
			return wrapAssembly(errors.Wrapf(ErrReservedName, "label %q", name))
		}
		if err := a.labels.add(name, a.code.size()); err != nil {
			return wrapAssembly(err)
		}
		return nil
	}

	// 9. BEGIN
	if strings.EqualFold(tok, "BEGIN") {
		if a.beginSet {
			return wrapAssembly(ErrBeginDuplicate)
		}
		a.beginSet = true
		a.entry = a.code.size()
		return nil
	}

	// 10. instruction mnemonic
	if in, ok := lookupInstruction(tok); ok {
		a.code.append(codeRecord{kind: recordOp, op: in})
		return nil
	}

	// 11. existing label reference
	if a.labels.exists(tok) {
		idx, err := a.labels.get(tok)
		if err != nil {
			return wrapAssembly(err)
		}
		a.pushConst(Label(tok, idx))
		return nil
	}

	// 12. placeholder (forward reference, resolved in pass 2)
	a.appendPlaceholder(tok)
	return nil
}

// resolvePlaceholders is pass 2: every placeholder must resolve against
// the label table now that the whole source has been scanned.
func (a *assembler) resolvePlaceholders() error {
	for i := 0; i < a.code.size(); i++ {
		rec, err := a.code.get(i)
		if err != nil {
			return err
		}
		if rec.kind != recordPlaceholder {
			continue
		}
		idx, err := a.labels.get(rec.symbol)
		if err != nil {
			return wrapAssembly(err)
		}
		if err := a.code.replace(i, codeRecord{kind: recordPushConst, constVal: Label(rec.symbol, idx)}); err != nil {
			return err
		}
	}
	return nil
}
