package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSimpleExit(t *testing.T) {
	code, _, entry, err := Assemble("BEGIN\n5 EXIT\n")
	require.NoError(t, err)
	assert.Equal(t, 0, entry)
	assert.Equal(t, 2, code.size())
}

func TestAssembleForwardLabelReference(t *testing.T) {
	src := `
BEGIN
END JUMP
999 EXIT
@END
0 EXIT
`
	_, labels, _, err := Assemble(src)
	require.NoError(t, err)
	assert.True(t, labels.exists("END"))
}

func TestAssembleMissingBeginIsFatal(t *testing.T) {
	_, _, _, err := Assemble("5 EXIT\n")
	require.Error(t, err)
	var aerr *AssemblyError
	require.ErrorAs(t, err, &aerr)
	require.ErrorIs(t, err, ErrBeginMissing)
}

func TestAssembleDuplicateLabelIsFatal(t *testing.T) {
	src := "BEGIN\n@X 1 EXIT\n@X 2 EXIT\n"
	_, _, _, err := Assemble(src)
	require.ErrorIs(t, err, ErrDuplicateLabel)
}

func TestAssembleUnknownSymbolIsFatal(t *testing.T) {
	src := "BEGIN\nNOSUCHTHING JUMP\n"
	_, _, _, err := Assemble(src)
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestAssembleReservedLabelNameIsFatal(t *testing.T) {
	src := "BEGIN\n@TRUE 1 EXIT\n"
	_, _, _, err := Assemble(src)
	require.ErrorIs(t, err, ErrReservedName)
}

func TestAssembleStringLiteralShorthand(t *testing.T) {
	code, _, entry, err := Assemble("BEGIN\n\"\"hi\n")
	require.NoError(t, err)
	// 'h', 'i', then the length -> 3 records.
	assert.Equal(t, 3, code.size())
	assert.Equal(t, 0, entry)
}

func TestAssembleHexFloatAndCharLiterals(t *testing.T) {
	code, _, _, err := Assemble("BEGIN\n0xFF 3.14 'z' EXIT\n")
	require.NoError(t, err)
	require.Equal(t, 4, code.size())

	rec, err := code.get(0)
	require.NoError(t, err)
	assert.Equal(t, KindInt, rec.constVal.Kind())
	assert.Equal(t, int32(255), rec.constVal.Int())

	rec, err = code.get(1)
	require.NoError(t, err)
	assert.Equal(t, KindFloat, rec.constVal.Kind())
	assert.InDelta(t, 3.14, rec.constVal.Float(), 0.0001)

	rec, err = code.get(2)
	require.NoError(t, err)
	assert.Equal(t, KindChar, rec.constVal.Kind())
	assert.Equal(t, byte('z'), rec.constVal.Char())
}
