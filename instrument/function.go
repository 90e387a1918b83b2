// Package instrument implements the module instrumenter: it locates the
// tracer hook, selects eligible functions, and rewrites each one's body to
// call the hook on entry and at every return point.
package instrument

import (
	"github.com/wasmtrace/wasmtrace/api"
	"github.com/wasmtrace/wasmtrace/internal/wasmbin"
	"github.com/wasmtrace/wasmtrace/tracer"
)

// VoidReturnPayload is the sentinel payload logged alongside a void return,
// the largest representable signed 32-bit integer.
const VoidReturnPayload = tracer.VoidPlaceholder

// prologue returns the fixed three-instruction sequence emitted at a
// function's entry: push FunctionCall, push the function's own index, call
// the hook. The operand stack is unchanged after it runs.
func prologue(functionIndex uint32, hookIndex uint32) []wasmbin.Instruction {
	return []wasmbin.Instruction{
		wasmbin.I32Const(int32(tracer.FunctionCall)),
		wasmbin.I32Const(int32(functionIndex)),
		wasmbin.Call(hookIndex),
	}
}

// voidEpilogue returns the three-instruction sequence emitted at a return
// point of a function with no result: push FunctionReturnVoid, push the
// void sentinel, call the hook. Net stack effect is zero.
func voidEpilogue(hookIndex uint32) []wasmbin.Instruction {
	return []wasmbin.Instruction{
		wasmbin.I32Const(int32(tracer.FunctionReturnVoid)),
		wasmbin.I32Const(VoidReturnPayload),
		wasmbin.Call(hookIndex),
	}
}

// valueEpilogue returns the four-instruction sequence emitted at a return
// point of a function whose result is captured in local returnLocal:
// tee-local to duplicate the return value into the fresh local while
// leaving it on the stack, push FunctionReturnValue, get-local to recover
// the payload, call the hook. The returned value remains on top of stack,
// unchanged, afterward.
func valueEpilogue(hookIndex, returnLocal uint32) []wasmbin.Instruction {
	return []wasmbin.Instruction{
		wasmbin.LocalTee(returnLocal),
		wasmbin.I32Const(int32(tracer.FunctionReturnValue)),
		wasmbin.LocalGet(returnLocal),
		wasmbin.Call(hookIndex),
	}
}

// InstrumentFunction rewrites body in place to call the hook at hookIndex
// on entry, at every explicit return, and at the implicit fall-through
// return before the body's trailing end — unless that fall-through is
// provably unreachable, i.e. the instruction immediately before end is
// itself unreachable.
//
// paramCount is the function's declared parameter count: the local index
// space interleaves declared locals after the parameters, so a fresh local
// appended here must be numbered paramCount + (locals already declared),
// not just the latter.
//
// If resultType is present, a fresh local of that type is appended to
// body.Locals to carry the return value across tee/get, per the
// tee-local strategy: the returned value must survive on the stack across
// the hook call unchanged.
func InstrumentFunction(body *wasmbin.Code, functionIndex uint32, paramCount int, resultType *api.ValueType, hookIndex uint32) {
	pro := prologue(functionIndex, hookIndex)

	var epi []wasmbin.Instruction
	if resultType != nil {
		returnLocal := nextLocalIndex(body, paramCount)
		body.Locals = append(body.Locals, wasmbin.Local{Count: 1, Type: *resultType})
		epi = valueEpilogue(hookIndex, returnLocal)
	} else {
		epi = voidEpilogue(hookIndex)
	}

	body.Instructions = spliceReturns(body.Instructions, epi)
	body.Instructions = append(pro, body.Instructions...)
}

// nextLocalIndex returns the id a newly appended local declaration would
// receive: the function's parameter count plus the sum of the counts of all
// locals already declared. Parameters occupy the lowest indices in the
// local index space, ahead of any declared locals, so they must be counted
// here even though they are never themselves recorded in body.Locals.
func nextLocalIndex(body *wasmbin.Code, paramCount int) uint32 {
	n := uint32(paramCount)
	for _, l := range body.Locals {
		n += l.Count
	}
	return n
}

// spliceReturns walks instrs, emitting a fresh copy of epilogue immediately
// before every explicit return instruction — including one that is itself
// the body's very first instruction — so it runs with the return value
// still on top of stack. This never touches the body's trailing end: the
// fall-through epilogue is emitted separately, immediately before that end,
// unless the instruction preceding it is unreachable.
func spliceReturns(instrs []wasmbin.Instruction, epilogue []wasmbin.Instruction) []wasmbin.Instruction {
	out := make([]wasmbin.Instruction, 0, len(instrs)+len(epilogue)*2)
	for _, inst := range instrs {
		if inst.IsReturn() {
			out = append(out, cloneEpilogue(epilogue)...)
		}
		out = append(out, inst)
	}

	// instrs always ends with the body terminator end (guaranteed by the
	// decoder, which only stops consuming a body at depth-zero end).
	if len(instrs) < 2 || !instrs[len(instrs)-2].IsUnreachable() {
		trailingEnd := out[len(out)-1]
		out = append(out[:len(out)-1], cloneEpilogue(epilogue)...)
		out = append(out, trailingEnd)
	}
	return out
}

func cloneEpilogue(epilogue []wasmbin.Instruction) []wasmbin.Instruction {
	out := make([]wasmbin.Instruction, len(epilogue))
	copy(out, epilogue)
	return out
}
