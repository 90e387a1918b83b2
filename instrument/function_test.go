package instrument

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmtrace/wasmtrace/api"
	"github.com/wasmtrace/wasmtrace/internal/wasmbin"
)

const hookIndex = uint32(999)

func i32() *api.ValueType {
	v := api.ValueTypeI32
	return &v
}

// addFunctionBody is the function-names fixture's first function: an i32
// add taking two params, body `local.get 1; local.get 0; i32.add; end`.
func addFunctionBody() *wasmbin.Code {
	return &wasmbin.Code{
		Instructions: []wasmbin.Instruction{
			wasmbin.LocalGet(1),
			wasmbin.LocalGet(0),
			{Opcode: wasmbin.OpcodeI32Add},
			wasmbin.End,
		},
	}
}

func TestInstrumentFunctionPrologue(t *testing.T) {
	body := addFunctionBody()
	InstrumentFunction(body, 0, 2, i32(), hookIndex)

	require.Equal(t, []wasmbin.Instruction{
		wasmbin.I32Const(0), // FunctionCall
		wasmbin.I32Const(0), // own index
		wasmbin.Call(hookIndex),
	}, body.Instructions[0:3])
}

func TestInstrumentFunctionValueEpilogueAndLocal(t *testing.T) {
	body := addFunctionBody()
	InstrumentFunction(body, 3, 2, i32(), hookIndex)

	// the epilogue is spliced before the trailing end: tee-local, push
	// FunctionReturnValue, get-local, call, end. The fresh local's index is
	// 2, the function's param count (body.Locals starts empty), not 0.
	n := len(body.Instructions)
	require.Equal(t, []wasmbin.Instruction{
		wasmbin.LocalTee(2),
		wasmbin.I32Const(2), // FunctionReturnValue
		wasmbin.LocalGet(2),
		wasmbin.Call(hookIndex),
		wasmbin.End,
	}, body.Instructions[n-5:])

	require.Equal(t, []wasmbin.Local{{Count: 1, Type: api.ValueTypeI32}}, body.Locals)
}

func TestInstrumentFunctionVoidEpilogue(t *testing.T) {
	body := &wasmbin.Code{Instructions: []wasmbin.Instruction{
		wasmbin.LocalGet(0),
		wasmbin.Call(2),
		wasmbin.End,
	}}
	InstrumentFunction(body, 1, 1, nil, hookIndex)

	n := len(body.Instructions)
	require.Equal(t, []wasmbin.Instruction{
		wasmbin.I32Const(1), // FunctionReturnVoid
		wasmbin.I32Const(VoidReturnPayload),
		wasmbin.Call(hookIndex),
		wasmbin.End,
	}, body.Instructions[n-4:])
	require.Empty(t, body.Locals)
}

func TestInstrumentFunctionSplicesExplicitReturn(t *testing.T) {
	body := &wasmbin.Code{Instructions: []wasmbin.Instruction{
		wasmbin.LocalGet(0),
		wasmbin.Return,
		wasmbin.End,
	}}
	InstrumentFunction(body, 0, 1, nil, hookIndex)

	// prologue(3) + [local.get 0] + epilogue(3) + return + epilogue(3) + end
	require.Equal(t, 3+1+3+1+3+1, len(body.Instructions))
	require.True(t, body.Instructions[7].IsReturn())
	require.True(t, body.Instructions[len(body.Instructions)-1].IsEnd())

	callCount := 0
	for _, inst := range body.Instructions {
		if idx, ok := inst.CallIndex(); ok && idx == hookIndex {
			callCount++
		}
	}
	// 1 (prologue) + 1 (explicit return) + 1 (trailing fall-through epilogue)
	require.Equal(t, 3, callCount)
}

func TestInstrumentFunctionSplicesLeadingReturn(t *testing.T) {
	// a return as the body's very first instruction has no preceding
	// instruction to anchor the splice on; the epilogue must still land
	// immediately before it.
	body := &wasmbin.Code{Instructions: []wasmbin.Instruction{
		wasmbin.Return,
		wasmbin.End,
	}}
	InstrumentFunction(body, 0, 0, nil, hookIndex)

	// prologue(3) + epilogue(3) + return + epilogue(3) + end
	require.Equal(t, 3+3+1+3+1, len(body.Instructions))
	require.True(t, body.Instructions[6].IsReturn())
	require.True(t, body.Instructions[len(body.Instructions)-1].IsEnd())

	callCount := 0
	for _, inst := range body.Instructions {
		if idx, ok := inst.CallIndex(); ok && idx == hookIndex {
			callCount++
		}
	}
	require.Equal(t, 3, callCount)
}

func TestInstrumentFunctionSkipsEpilogueAfterUnreachable(t *testing.T) {
	body := &wasmbin.Code{Instructions: []wasmbin.Instruction{
		wasmbin.Unreachable,
		wasmbin.End,
	}}
	InstrumentFunction(body, 0, 0, nil, hookIndex)

	// prologue(3) + unreachable + end, no trailing epilogue.
	require.Equal(t, []wasmbin.Instruction{wasmbin.Unreachable, wasmbin.End}, body.Instructions[3:])
}
