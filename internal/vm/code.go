package vm

import "github.com/pkg/errors"

// recordKind tags what a codeRecord actually holds. Using a two-level tag
// (kind + payload) instead of one type per op keeps the code segment a
// flat, cache-dense slice of records rather than a slice of interfaces
// backed by many small heap allocations.
type recordKind byte

const (
	recordOp          recordKind = iota // a dispatchable built-in instruction
	recordPushConst                     // PUSH, synthesised by the assembler for a literal
	recordPlaceholder                   // pass-1 forward reference, must not survive pass 2
)

// codeRecord is one slot in the code segment.
type codeRecord struct {
	kind     recordKind
	op       *instruction // valid when kind == recordOp
	constVal Value        // valid when kind == recordPushConst
	symbol   string       // valid when kind == recordPlaceholder
}

// codeSegment is the append-only, randomly-indexable instruction tape
// produced by the assembler and walked by the interpreter. Pass 2
// replaces placeholder records in place so that labels recorded during
// pass 1 keep pointing at the right index.
type codeSegment struct {
	records []codeRecord
}

func newCodeSegment() *codeSegment {
	return &codeSegment{}
}

func (c *codeSegment) size() int {
	return len(c.records)
}

func (c *codeSegment) append(r codeRecord) int {
	c.records = append(c.records, r)
	return len(c.records) - 1
}

func (c *codeSegment) get(index int) (codeRecord, error) {
	if index < 0 || index >= len(c.records) {
		return codeRecord{}, errors.Wrapf(ErrIPOutOfRange, "index %d", index)
	}
	return c.records[index], nil
}

func (c *codeSegment) replace(index int, r codeRecord) error {
	if index < 0 || index >= len(c.records) {
		return errors.Wrapf(ErrIPOutOfRange, "index %d", index)
	}
	c.records[index] = r
	return nil
}

// displayName is used by debug traces and runtime error annotation.
func (r codeRecord) displayName() string {
	switch r.kind {
	case recordOp:
		return r.op.name
	case recordPushConst:
		return "PUSH"
	default:
		return "<placeholder:" + r.symbol + ">"
	}
}
