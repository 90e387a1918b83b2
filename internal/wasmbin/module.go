// Package wasmbin decodes and re-encodes the WebAssembly binary module
// format to the extent the instrumenter needs: full structural access to
// the type, import, function, export, and code sections, and byte-exact
// passthrough of every other section.
//
// The codec deliberately does not validate the module (Non-goal): malformed
// input produces a decode error, not a rejection of semantically invalid
// but well-formed bytecode.
package wasmbin

import "github.com/wasmtrace/wasmtrace/api"

// Section IDs, in the order they must appear in a binary module.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
const (
	SectionCustom    = 0
	SectionType      = 1
	SectionImport    = 2
	SectionFunction  = 3
	SectionTable     = 4
	SectionMemory    = 5
	SectionGlobal    = 6
	SectionExport    = 7
	SectionStart     = 8
	SectionElement   = 9
	SectionCode      = 10
	SectionData      = 11
	SectionDataCount = 12
)

// Magic and Version are the eight bytes every binary module starts with.
var (
	Magic   = [4]byte{0x00, 0x61, 0x73, 0x6d}
	Version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// RawSection is a section exactly as it appeared in the source module: an
// ID and its content bytes, header (ID byte plus size varint) stripped.
//
// Module retains every section as a RawSection, in original order, so that
// re-encoding an unmodified module reproduces it byte for byte. Sections
// the instrumenter needs to reason about structurally (type, import,
// function, export, code) are additionally parsed into the typed fields
// below; sections it only passes through (table, memory, global, start,
// element, data, data count, custom) exist solely as RawSection entries.
type RawSection struct {
	ID      byte
	Content []byte
}

// FunctionType is a function signature: an ordered list of parameter value
// types, plus the WebAssembly 1.0 result list (in practice 0 or 1 entries;
// see Result).
type FunctionType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// Result returns the function's single return value type, per the
// WebAssembly 1.0 model this tool targets, and whether it has one.
func (t FunctionType) Result() (api.ValueType, bool) {
	if len(t.Results) == 0 {
		return 0, false
	}
	return t.Results[0], true
}

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   api.ExternType
	// FuncTypeIndex is valid when Kind == api.ExternTypeFunc: the index
	// into Module.Types this imported function is declared with.
	FuncTypeIndex uint32
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  api.ExternType
	Index uint32
}

// Local is one run-length-encoded local variable declaration at the head of
// a function body: Count consecutive locals of Type.
type Local struct {
	Count uint32
	Type  api.ValueType
}

// Code is one function body from the code section: its local declarations
// followed by its instruction stream (which always ends with the body's
// terminating OpcodeEnd).
type Code struct {
	Locals       []Local
	Instructions []Instruction
}

// ExpandedLocalTypes expands Locals into one value type per declared local,
// in declaration order.
func (c Code) ExpandedLocalTypes() []api.ValueType {
	var out []api.ValueType
	for _, l := range c.Locals {
		for i := uint32(0); i < l.Count; i++ {
			out = append(out, l.Type)
		}
	}
	return out
}

// Module is a decoded WebAssembly binary module.
type Module struct {
	// Sections holds every section in original order, raw. Encode walks
	// this slice; any section whose ID matches SectionCode is re-emitted
	// from Code instead of reused verbatim, since that is the only section
	// the instrumenter mutates.
	Sections []RawSection

	Types    []FunctionType
	Imports  []Import
	// FunctionTypeIndices holds, for each function defined by this module
	// (as opposed to imported), the index into Types of its signature.
	FunctionTypeIndices []uint32
	Exports  []Export
	// Code holds one entry per function defined by this module, in the
	// same order as FunctionTypeIndices. Nil if the module has no code
	// section (valid for a type-only or pure-import module).
	Code []Code
}

// ImportedFunctionCount returns the number of imports of kind
// api.ExternTypeFunc, i.e. the number of function-index-space slots
// consumed by imports before the module's own functions begin.
func (m *Module) ImportedFunctionCount() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == api.ExternTypeFunc {
			n++
		}
	}
	return n
}

// OwnFunctionCount returns the number of functions this module defines
// itself, as opposed to imports.
func (m *Module) OwnFunctionCount() int {
	return len(m.FunctionTypeIndices)
}

// codeSectionIndex returns the index into m.Sections holding the code
// section, or -1 if the module has none.
func (m *Module) codeSectionIndex() int {
	for i, s := range m.Sections {
		if s.ID == SectionCode {
			return i
		}
	}
	return -1
}

// HasCodeSection reports whether the module declares a code section at
// all, independent of how many bodies it contains.
func (m *Module) HasCodeSection() bool {
	return m.codeSectionIndex() >= 0
}
