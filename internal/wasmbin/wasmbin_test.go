package wasmbin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmtrace/wasmtrace/api"
)

// doubleModule is a minimal module exporting one function, "double", of
// type (i32) -> i32, computing local.get 0 * 2.
func doubleModule() []byte {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.Write(Version[:])

	// type section: [() none -> irrelevant] one type (i32) -> i32
	typeContent := []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f}
	buf.WriteByte(SectionType)
	buf.WriteByte(byte(len(typeContent)))
	buf.Write(typeContent)

	// function section: one function, type index 0
	funcContent := []byte{0x01, 0x00}
	buf.WriteByte(SectionFunction)
	buf.WriteByte(byte(len(funcContent)))
	buf.Write(funcContent)

	// export section: "double" -> func 0
	exportContent := []byte{0x01, 0x06}
	exportContent = append(exportContent, []byte("double")...)
	exportContent = append(exportContent, 0x00, 0x00)
	buf.WriteByte(SectionExport)
	buf.WriteByte(byte(len(exportContent)))
	buf.Write(exportContent)

	// code section: one body, no locals, local.get 0; i32.const 2; i32.mul; end
	body := []byte{0x00, 0x20, 0x00, 0x41, 0x02, 0x6C, 0x0B}
	codeContent := []byte{0x01, byte(len(body))}
	codeContent = append(codeContent, body...)
	buf.WriteByte(SectionCode)
	buf.WriteByte(byte(len(codeContent)))
	buf.Write(codeContent)

	return buf.Bytes()
}

func TestDecodeModuleStructure(t *testing.T) {
	m, err := DecodeModule(bytes.NewReader(doubleModule()))
	require.NoError(t, err)

	require.Equal(t, []FunctionType{{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}}, m.Types)
	require.Equal(t, []uint32{0}, m.FunctionTypeIndices)
	require.Equal(t, []Export{{Name: "double", Kind: api.ExternTypeFunc, Index: 0}}, m.Exports)
	require.Equal(t, 0, m.ImportedFunctionCount())
	require.Equal(t, 1, m.OwnFunctionCount())

	require.Len(t, m.Code, 1)
	require.Equal(t, []Instruction{
		LocalGet(0),
		I32Const(2),
		{Opcode: OpcodeI32Mul},
		End,
	}, m.Code[0].Instructions)
}

func TestEncodeModuleRoundTrip(t *testing.T) {
	original := doubleModule()
	m, err := DecodeModule(bytes.NewReader(original))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, EncodeModule(&out, m))
	require.Equal(t, original, out.Bytes())
}

func TestEncodeModuleReflectsCodeMutation(t *testing.T) {
	m, err := DecodeModule(bytes.NewReader(doubleModule()))
	require.NoError(t, err)

	m.Code[0].Instructions = append([]Instruction{Nop}, m.Code[0].Instructions...)

	var out bytes.Buffer
	require.NoError(t, EncodeModule(&out, m))

	m2, err := DecodeModule(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Equal(t, Nop, m2.Code[0].Instructions[0])
	require.Len(t, m2.Code[0].Instructions, 5)
}

func TestInstructionAccessors(t *testing.T) {
	i := Call(7)
	idx, ok := i.CallIndex()
	require.True(t, ok)
	require.Equal(t, uint32(7), idx)

	c := I32Const(-5)
	v, ok := c.I32Value()
	require.True(t, ok)
	require.Equal(t, int32(-5), v)

	f := F64Const(4602678819172646912) // 0.5 as IEEE-754 bits
	bits, ok := f.F64Bits()
	require.True(t, ok)
	require.Equal(t, uint64(4602678819172646912), bits)
}

func TestDecodeInstructionsHandlesBlockNesting(t *testing.T) {
	// block (empty) / local.get 0 / end (closes block) / end (closes function)
	body := []byte{0x02, 0x40, 0x20, 0x00, 0x0B, 0x0B}
	instrs, err := decodeInstructions(body)
	require.NoError(t, err)
	require.Len(t, instrs, 4)
	require.Equal(t, OpcodeBlock, instrs[0].Opcode)
	require.True(t, instrs[3].IsEnd())
}
