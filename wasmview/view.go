// Package wasmview provides a read-only, indexed view over a decoded
// WebAssembly module: a unified function index space spanning imports and
// own functions, exported names, and signatures, all derived once at
// construction time.
package wasmview

import (
	"fmt"
	"strings"

	"github.com/wasmtrace/wasmtrace/api"
	"github.com/wasmtrace/wasmtrace/internal/either"
	"github.com/wasmtrace/wasmtrace/internal/wasmbin"
)

// Source identifies whether a function descriptor originates from the
// import section or the function/code sections.
type Source int

const (
	SourceImport Source = iota
	SourceFunction
)

func (s Source) String() string {
	if s == SourceImport {
		return "Import"
	}
	return "Function"
}

// FunctionDescriptor is a read-only view of one entry in the function index
// space: its index, signature, optional display name, optional body, and
// provenance.
type FunctionDescriptor struct {
	Index  uint32
	Type   wasmbin.FunctionType
	Name   string
	HasName bool
	Body   *wasmbin.Code
	Source Source
}

// Instructions returns the descriptor's body instructions, or an empty
// sequence for an import (which has no body).
func (f FunctionDescriptor) Instructions() either.Iterator[wasmbin.Instruction] {
	if f.Body == nil {
		return either.Empty[wasmbin.Instruction]()
	}
	return either.Of(f.Body.Instructions)
}

// String renders a descriptor the way a CLI diagnostic would: source,
// index, name, signature, then an indented instruction dump.
func (f FunctionDescriptor) String() string {
	name := fmt.Sprintf("#%d", f.Index)
	if f.HasName {
		name = fmt.Sprintf("#%d %s", f.Index, f.Name)
	}

	var params strings.Builder
	for _, p := range f.Type.Params {
		params.WriteString(api.ValueTypeName(p))
		params.WriteByte(' ')
	}
	ret := "()"
	if r, ok := f.Type.Result(); ok {
		ret = api.ValueTypeName(r)
	}

	var body strings.Builder
	it := f.Instructions()
	for {
		inst, ok := it.Next()
		if !ok {
			break
		}
		fmt.Fprintf(&body, "\t%#x\n", inst.Opcode)
	}

	return fmt.Sprintf("%s %s : %s-> %s\n%s", f.Source, name, params.String(), ret, body.String())
}

// ModuleView wraps a decoded module with the derived indices the
// instrumenter and CLI diagnostics need.
type ModuleView struct {
	module       *wasmbin.Module
	exportedName map[uint32]string
}

// New builds a ModuleView over m, eagerly scanning the export section for
// function exports.
func New(m *wasmbin.Module) *ModuleView {
	v := &ModuleView{module: m, exportedName: map[uint32]string{}}
	for _, exp := range m.Exports {
		if exp.Kind == api.ExternTypeFunc {
			v.exportedName[exp.Index] = exp.Name
		}
	}
	return v
}

// Module returns the underlying decoded module.
func (v *ModuleView) Module() *wasmbin.Module { return v.module }

// Imports iterates the import section, yielding an empty sequence if the
// module has none.
func (v *ModuleView) Imports() either.Iterator[wasmbin.Import] {
	if len(v.module.Imports) == 0 {
		return either.Empty[wasmbin.Import]()
	}
	return either.Of(v.module.Imports)
}

// Exports iterates the export section.
func (v *ModuleView) Exports() either.Iterator[wasmbin.Export] {
	if len(v.module.Exports) == 0 {
		return either.Empty[wasmbin.Export]()
	}
	return either.Of(v.module.Exports)
}

// Types iterates the type section.
func (v *ModuleView) Types() either.Iterator[wasmbin.FunctionType] {
	if len(v.module.Types) == 0 {
		return either.Empty[wasmbin.FunctionType]()
	}
	return either.Of(v.module.Types)
}

// ImportedFunctionsCount returns the decoder's native import-function
// count. Callers must use this rather than counting Imports() themselves:
// the import section may hold table, memory, or global imports too.
func (v *ModuleView) ImportedFunctionsCount() int {
	return v.module.ImportedFunctionCount()
}

// OwnFunctionsCount returns the number of module-internal functions.
func (v *ModuleView) OwnFunctionsCount() int {
	return v.module.OwnFunctionCount()
}

// GetType looks up a type-section entry by index.
func (v *ModuleView) GetType(typeIndex uint32) (wasmbin.FunctionType, bool) {
	if int(typeIndex) >= len(v.module.Types) {
		return wasmbin.FunctionType{}, false
	}
	return v.module.Types[typeIndex], true
}

// GetFunctionName looks up a function-space index in the exported-name map.
func (v *ModuleView) GetFunctionName(functionIndex uint32) (string, bool) {
	name, ok := v.exportedName[functionIndex]
	return name, ok
}

// importedFunctions yields one descriptor per function import, indexed
// 0..ImportedFunctionsCount()-1 in import-section order, skipping
// non-function imports.
func (v *ModuleView) importedFunctions() []FunctionDescriptor {
	var out []FunctionDescriptor
	var i uint32
	for _, imp := range v.module.Imports {
		if imp.Kind != api.ExternTypeFunc {
			continue
		}
		ty, _ := v.GetType(imp.FuncTypeIndex)
		out = append(out, FunctionDescriptor{
			Index: i, Type: ty, Name: imp.Name, HasName: true,
			Body: nil, Source: SourceImport,
		})
		i++
	}
	return out
}

// Functions yields function descriptors across the whole function index
// space: imported functions first, in import order, then own functions,
// whose indices start at ImportedFunctionsCount() and whose names come
// from the exported-name map (absent for non-exported internals).
//
// Returns an empty sequence if the module has no callable functions at
// all, which lets a caller range over it without special-casing that case.
func (v *ModuleView) Functions() either.Iterator[FunctionDescriptor] {
	importedCount := v.ImportedFunctionsCount()
	ownCount := v.OwnFunctionsCount()
	total := importedCount + ownCount
	if total == 0 {
		return either.Empty[FunctionDescriptor]()
	}

	out := v.importedFunctions()
	for i, typeIdx := range v.module.FunctionTypeIndices {
		id := uint32(importedCount + i)
		ty, _ := v.GetType(typeIdx)
		name, hasName := v.GetFunctionName(id)
		var body *wasmbin.Code
		if i < len(v.module.Code) {
			body = &v.module.Code[i]
		}
		out = append(out, FunctionDescriptor{
			Index: id, Type: ty, Name: name, HasName: hasName,
			Body: body, Source: SourceFunction,
		})
	}

	if len(out) != total {
		panic(fmt.Sprintf("wasmview: function-space count mismatch: got %d descriptors, want %d (imported=%d own=%d)",
			len(out), total, importedCount, ownCount))
	}
	return either.Of(out)
}
