package wasmbin

import (
	"encoding/binary"

	"github.com/wasmtrace/wasmtrace/internal/leb128"
)

func encodeU32(v uint32) []byte { return leb128.EncodeUint32(v) }
func encodeI32(v int32) []byte  { return leb128.EncodeInt32(v) }
func encodeI64(v int64) []byte  { return leb128.EncodeInt64(v) }

func decodeU32(b []byte) (uint32, error) {
	v, _, err := leb128.LoadUint32(b)
	return v, err
}

func decodeI32(b []byte) (int32, error) {
	v, _, err := leb128.LoadInt32(b)
	return v, err
}

func decodeI64(b []byte) (int64, error) {
	v, _, err := leb128.LoadInt64(b)
	return v, err
}

func encodeF32(bits uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, bits)
	return buf
}

func encodeF64(bits uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, bits)
	return buf
}

func decodeF32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func decodeF64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// I32Value decodes the constant of an i32.const instruction.
func (i Instruction) I32Value() (int32, bool) {
	if i.Opcode != OpcodeI32Const {
		return 0, false
	}
	v, _ := decodeI32(i.Immediate)
	return v, true
}

// I64Value decodes the constant of an i64.const instruction.
func (i Instruction) I64Value() (int64, bool) {
	if i.Opcode != OpcodeI64Const {
		return 0, false
	}
	v, _ := decodeI64(i.Immediate)
	return v, true
}

// F32Bits decodes the raw bits of an f32.const instruction.
func (i Instruction) F32Bits() (uint32, bool) {
	if i.Opcode != OpcodeF32Const {
		return 0, false
	}
	return decodeF32(i.Immediate), true
}

// F64Bits decodes the raw bits of an f64.const instruction.
func (i Instruction) F64Bits() (uint64, bool) {
	if i.Opcode != OpcodeF64Const {
		return 0, false
	}
	return decodeF64(i.Immediate), true
}
