package vm

import (
	"strings"

	"github.com/pkg/errors"
)

// reservedWords may never be used as a label name, matching spec.md §3.
var reservedWords = map[string]bool{
	"BEGIN": true,
	"TRUE":  true,
	"FALSE": true,
}

// labelTable maps a case-insensitive name to a code-segment index. Every
// name is upper-cased at insertion and at lookup so the table never
// stores both cases of the same name (spec.md §4.2, §4.9 design notes).
type labelTable struct {
	entries map[string]int
}

func newLabelTable() *labelTable {
	return &labelTable{entries: make(map[string]int)}
}

func normalizeLabel(name string) string {
	return strings.ToUpper(name)
}

func (t *labelTable) exists(name string) bool {
	_, ok := t.entries[normalizeLabel(name)]
	return ok
}

func (t *labelTable) add(name string, index int) error {
	key := normalizeLabel(name)
	if reservedWords[key] {
		return errors.Wrapf(ErrReservedName, "label %q", name)
	}
	if _, ok := t.entries[key]; ok {
		return errors.Wrapf(ErrDuplicateLabel, "label %q", name)
	}
	t.entries[key] = index
	return nil
}

func (t *labelTable) get(name string) (int, error) {
	key := normalizeLabel(name)
	idx, ok := t.entries[key]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownSymbol, "%s", name)
	}
	return idx, nil
}

// remove drops name from the table, matching spec.md §4.2's required
// Label table operations (exists/add/get/remove).
func (t *labelTable) remove(name string) {
	delete(t.entries, normalizeLabel(name))
}
