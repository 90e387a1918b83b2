package wasmbin

// Opcode is a single WebAssembly instruction opcode byte.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#instructions%E2%91%A0
type Opcode = byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeEnd         Opcode = 0x0B
	OpcodeBr          Opcode = 0x0C
	OpcodeBrIf        Opcode = 0x0D
	OpcodeBrTable     Opcode = 0x0E
	OpcodeReturn      Opcode = 0x0F
	OpcodeCall        Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11

	OpcodeDrop   Opcode = 0x1A
	OpcodeSelect Opcode = 0x1B

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeI32Load    Opcode = 0x28
	OpcodeI64Load    Opcode = 0x29
	OpcodeF32Load    Opcode = 0x2A
	OpcodeF64Load    Opcode = 0x2B
	OpcodeI32Load8S  Opcode = 0x2C
	OpcodeI32Load8U  Opcode = 0x2D
	OpcodeI32Load16S Opcode = 0x2E
	OpcodeI32Load16U Opcode = 0x2F
	OpcodeI64Load8S  Opcode = 0x30
	OpcodeI64Load8U  Opcode = 0x31
	OpcodeI64Load16S Opcode = 0x32
	OpcodeI64Load16U Opcode = 0x33
	OpcodeI64Load32S Opcode = 0x34
	OpcodeI64Load32U Opcode = 0x35
	OpcodeI32Store   Opcode = 0x36
	OpcodeI64Store   Opcode = 0x37
	OpcodeF32Store   Opcode = 0x38
	OpcodeF64Store   Opcode = 0x39
	OpcodeI32Store8  Opcode = 0x3A
	OpcodeI32Store16 Opcode = 0x3B
	OpcodeI64Store8  Opcode = 0x3C
	OpcodeI64Store16 Opcode = 0x3D
	OpcodeI64Store32 Opcode = 0x3E
	OpcodeMemorySize Opcode = 0x3F
	OpcodeMemoryGrow Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF32Const Opcode = 0x43
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Add Opcode = 0x6A
	OpcodeI32Sub Opcode = 0x6B
	OpcodeI32Mul Opcode = 0x6C
	OpcodeI32Shl Opcode = 0x74
	OpcodeF64Mul Opcode = 0xA2

	// blockTypeEmpty marks a block/loop/if with no result type.
	blockTypeEmpty = 0x40
)

// Instruction is one decoded WebAssembly instruction: an opcode plus its
// immediate operand, if any, encoded exactly as it will be re-emitted.
//
// Rather than modeling each opcode as its own Go type (as, say, a
// parity_wasm Instruction enum would in Rust), immediates are carried as
// pre-encoded bytes. This keeps splicing trivial — an untouched instruction
// round-trips byte for byte — while the handful of opcodes the instrumenter
// or its tests need to construct or inspect (consts, local/call indices) get
// typed constructors and accessors below.
type Instruction struct {
	Opcode    Opcode
	Immediate []byte
}

// Len reports the encoded length of the instruction, opcode included.
func (i Instruction) Len() int {
	return 1 + len(i.Immediate)
}

// IsReturn reports whether i is an explicit return instruction.
func (i Instruction) IsReturn() bool {
	return i.Opcode == OpcodeReturn
}

// IsEnd reports whether i is a block/function terminator.
func (i Instruction) IsEnd() bool {
	return i.Opcode == OpcodeEnd
}

// IsUnreachable reports whether i is the unreachable trap instruction.
func (i Instruction) IsUnreachable() bool {
	return i.Opcode == OpcodeUnreachable
}

// IsBlockStart reports whether i opens a nested block, loop, or if.
func (i Instruction) IsBlockStart() bool {
	switch i.Opcode {
	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		return true
	}
	return false
}

// Unreachable, End, Return, Nop, and Drop are the zero-immediate
// control/parametric instructions the instrumenter and its tests construct
// directly.
var (
	Unreachable = Instruction{Opcode: OpcodeUnreachable}
	End         = Instruction{Opcode: OpcodeEnd}
	Return      = Instruction{Opcode: OpcodeReturn}
	Nop         = Instruction{Opcode: OpcodeNop}
	Drop        = Instruction{Opcode: OpcodeDrop}
)

// Call constructs a call instruction targeting the given function index.
func Call(funcIndex uint32) Instruction {
	return Instruction{Opcode: OpcodeCall, Immediate: encodeU32(funcIndex)}
}

// CallIndex decodes the function index of a call instruction.
func (i Instruction) CallIndex() (uint32, bool) {
	if i.Opcode != OpcodeCall {
		return 0, false
	}
	v, _ := decodeU32(i.Immediate)
	return v, true
}

// LocalGet constructs a local.get instruction.
func LocalGet(localIndex uint32) Instruction {
	return Instruction{Opcode: OpcodeLocalGet, Immediate: encodeU32(localIndex)}
}

// LocalSet constructs a local.set instruction.
func LocalSet(localIndex uint32) Instruction {
	return Instruction{Opcode: OpcodeLocalSet, Immediate: encodeU32(localIndex)}
}

// LocalTee constructs a local.tee instruction: stores and leaves the value
// on the stack. The instrumenter uses this to capture a function's return
// value into a fresh local without disturbing the stack before the real
// return.
func LocalTee(localIndex uint32) Instruction {
	return Instruction{Opcode: OpcodeLocalTee, Immediate: encodeU32(localIndex)}
}

// LocalIndex decodes the local index of a local.get/set/tee instruction.
func (i Instruction) LocalIndex() (uint32, bool) {
	switch i.Opcode {
	case OpcodeLocalGet, OpcodeLocalSet, OpcodeLocalTee:
		v, _ := decodeU32(i.Immediate)
		return v, true
	}
	return 0, false
}

// I32Const constructs an i32.const instruction.
func I32Const(v int32) Instruction {
	return Instruction{Opcode: OpcodeI32Const, Immediate: encodeI32(v)}
}

// I64Const constructs an i64.const instruction.
func I64Const(v int64) Instruction {
	return Instruction{Opcode: OpcodeI64Const, Immediate: encodeI64(v)}
}

// F32Const constructs an f32.const instruction from its raw IEEE-754 bits.
func F32Const(bits uint32) Instruction {
	return Instruction{Opcode: OpcodeF32Const, Immediate: encodeF32(bits)}
}

// F64Const constructs an f64.const instruction from its raw IEEE-754 bits.
func F64Const(bits uint64) Instruction {
	return Instruction{Opcode: OpcodeF64Const, Immediate: encodeF64(bits)}
}
