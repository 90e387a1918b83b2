package wasmbin

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wasmtrace/wasmtrace/internal/leb128"
)

// decodeInstructions reads a flat instruction stream — as it appears inside
// a function body, nested blocks included — until it consumes the function
// body's own terminating end, i.e. the end whose matching block/loop/if
// nesting depth is zero. Nested ends (closing a block, loop, or if opened
// within the body) are part of the returned stream, not boundaries.
func decodeInstructions(data []byte) ([]Instruction, error) {
	r := bytes.NewReader(data)
	var out []Instruction
	depth := 0
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wasmbin: truncated instruction stream: %w", err)
		}
		immLen, err := immediateLen(op, r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: decoding immediate for opcode %#x: %w", op, err)
		}
		end := int64(len(data)) - int64(r.Len())
		immediate := append([]byte(nil), data[end-int64(immLen):end]...)
		inst := Instruction{Opcode: op, Immediate: immediate}
		out = append(out, inst)

		switch op {
		case OpcodeBlock, OpcodeLoop, OpcodeIf:
			depth++
		case OpcodeEnd:
			if depth == 0 {
				return out, nil
			}
			depth--
		}
	}
}

// immediateLen reads op's immediate operand from r (advancing it) and
// returns the number of bytes consumed.
func immediateLen(op Opcode, r *bytes.Reader) (int, error) {
	before := r.Len()
	var err error
	switch op {
	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		_, _, err = leb128.DecodeInt33AsInt64(r)
	case OpcodeBr, OpcodeBrIf, OpcodeCall, OpcodeLocalGet, OpcodeLocalSet, OpcodeLocalTee,
		OpcodeGlobalGet, OpcodeGlobalSet:
		_, _, err = leb128.DecodeUint32(r)
	case OpcodeBrTable:
		var count uint32
		count, _, err = leb128.DecodeUint32(r)
		if err != nil {
			break
		}
		for n := uint32(0); n < count; n++ {
			if _, _, err = leb128.DecodeUint32(r); err != nil {
				break
			}
		}
		if err == nil {
			_, _, err = leb128.DecodeUint32(r) // default label
		}
	case OpcodeCallIndirect:
		if _, _, err = leb128.DecodeUint32(r); err != nil { // type index
			break
		}
		_, _, err = leb128.DecodeUint32(r) // reserved table index
	case OpcodeI32Load, OpcodeI64Load, OpcodeF32Load, OpcodeF64Load,
		OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI32Load16S, OpcodeI32Load16U,
		OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI64Load16S, OpcodeI64Load16U,
		OpcodeI64Load32S, OpcodeI64Load32U,
		OpcodeI32Store, OpcodeI64Store, OpcodeF32Store, OpcodeF64Store,
		OpcodeI32Store8, OpcodeI32Store16, OpcodeI64Store8, OpcodeI64Store16, OpcodeI64Store32:
		if _, _, err = leb128.DecodeUint32(r); err != nil { // align
			break
		}
		_, _, err = leb128.DecodeUint32(r) // offset
	case OpcodeMemorySize, OpcodeMemoryGrow:
		_, err = r.ReadByte() // reserved
	case OpcodeI32Const:
		_, _, err = leb128.DecodeInt32(r)
	case OpcodeI64Const:
		_, _, err = leb128.DecodeInt64(r)
	case OpcodeF32Const:
		buf := make([]byte, 4)
		_, err = io.ReadFull(r, buf)
	case OpcodeF64Const:
		buf := make([]byte, 8)
		_, err = io.ReadFull(r, buf)
	default:
		// No immediate: unreachable, nop, else, end, return, drop, select,
		// and the whole no-operand numeric instruction set (comparisons,
		// arithmetic, conversions, sign extensions).
	}
	if err != nil {
		return 0, err
	}
	return before - r.Len(), nil
}

// encodeInstructions concatenates instrs back into a raw instruction
// stream. Every instruction's Immediate is pre-encoded, so this is a
// straight append — the inverse of decodeInstructions.
func encodeInstructions(instrs []Instruction) []byte {
	n := 0
	for _, i := range instrs {
		n += i.Len()
	}
	out := make([]byte, 0, n)
	for _, i := range instrs {
		out = append(out, i.Opcode)
		out = append(out, i.Immediate...)
	}
	return out
}
