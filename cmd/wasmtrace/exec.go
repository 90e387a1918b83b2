package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/bytecodealliance/wasmtime-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasmtrace/wasmtrace/tracer"
)

// newExecCommand drives an already-instrumented module through wasmtime,
// calling one exported function and then printing the trace recovered
// through the module's __expose_tracer/__expose_tracer_len exports. This
// is a diagnostic convenience on top of the core instrumenter: it is the
// thing a developer reaches for to confirm instrumentation actually
// produced a sane trace, without writing a harness by hand.
func newExecCommand(log *logrus.Logger, stdOut, stdErr *os.File) *cobra.Command {
	var call string
	var i32Args []int32

	cmd := &cobra.Command{
		Use:   "exec <instrumented.wasm>",
		Short: "Runs an instrumented module under wasmtime and prints its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if call == "" {
				return fmt.Errorf("exec: --call <export-name> is required")
			}

			wasmBytes, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("exec: %w", err)
			}

			engine := wasmtime.NewEngine()
			store := wasmtime.NewStore(engine)

			module, err := wasmtime.NewModule(store.Engine, wasmBytes)
			if err != nil {
				return fmt.Errorf("exec: compiling module: %w", err)
			}

			instance, err := wasmtime.NewInstance(store, module, nil)
			if err != nil {
				return fmt.Errorf("exec: instantiating module: %w", err)
			}

			fn := instance.GetFunc(store, call)
			if fn == nil {
				return fmt.Errorf("exec: module does not export function %q", call)
			}

			callArgs := make([]interface{}, len(i32Args))
			for i, v := range i32Args {
				callArgs[i] = v
			}
			result, err := fn.Call(store, callArgs...)
			if err != nil {
				return fmt.Errorf("exec: calling %q: %w", call, err)
			}
			fmt.Fprintf(stdOut, "%s returned: %v\n", call, result)

			entries, err := readTrace(store, instance)
			if err != nil {
				return fmt.Errorf("exec: reading trace: %w", err)
			}
			for _, e := range entries {
				fmt.Fprintf(stdOut, "%s %d\n", entryKindName(e.Kind), e.Payload)
			}
			log.WithField("entries", len(entries)).Debug("exec: trace decoded")
			return nil
		},
	}

	cmd.Flags().StringVar(&call, "call", "", "exported function name to invoke")
	cmd.Flags().Int32SliceVar(&i32Args, "arg", nil, "i32 argument to pass to the called function, may be repeated")
	return cmd
}

// readTrace recovers the trace buffer via the module's __expose_tracer and
// __expose_tracer_len exports, reading the guest's linear memory at the
// returned offset — the trace lives inside guest memory, not host memory,
// since the tracer runtime is part of the instrumented module itself.
func readTrace(store *wasmtime.Store, instance *wasmtime.Instance) ([]tracer.Entry, error) {
	lenFn := instance.GetFunc(store, tracer.ExposeTracerLenName)
	ptrFn := instance.GetFunc(store, tracer.ExposeTracerName)
	memExport := instance.GetExport(store, "memory")
	if lenFn == nil || ptrFn == nil || memExport == nil || memExport.Memory() == nil {
		return nil, fmt.Errorf("module does not export the tracer accessor contract")
	}
	mem := memExport.Memory()

	lenResult, err := lenFn.Call(store)
	if err != nil {
		return nil, err
	}
	length, ok := lenResult.(int32)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected type %T", tracer.ExposeTracerLenName, lenResult)
	}

	ptrResult, err := ptrFn.Call(store)
	if err != nil {
		return nil, err
	}
	ptr, ok := ptrResult.(int32)
	if !ok {
		return nil, fmt.Errorf("%s returned unexpected type %T", tracer.ExposeTracerName, ptrResult)
	}

	data := mem.UnsafeData(store)
	byteOffset := int(ptr)
	byteLen := int(length) * 4
	if byteOffset < 0 || byteLen < 0 || byteOffset+byteLen > len(data) {
		return nil, fmt.Errorf("trace span [%d:%d) out of bounds of %d-byte memory", byteOffset, byteOffset+byteLen, len(data))
	}

	out := make([]tracer.Entry, 0, length/2)
	for i := 0; i+8 <= byteLen; i += 8 {
		kind := int32(binary.LittleEndian.Uint32(data[byteOffset+i:]))
		payload := int32(binary.LittleEndian.Uint32(data[byteOffset+i+4:]))
		out = append(out, tracer.Entry{Kind: tracer.EntryKind(kind), Payload: payload})
	}
	return out, nil
}

func entryKindName(k tracer.EntryKind) string {
	switch k {
	case tracer.FunctionCall:
		return "call"
	case tracer.FunctionReturnVoid:
		return "return-void"
	case tracer.FunctionReturnValue:
		return "return-value"
	}
	return "unknown"
}
