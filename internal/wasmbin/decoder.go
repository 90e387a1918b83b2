package wasmbin

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wasmtrace/wasmtrace/api"
	"github.com/wasmtrace/wasmtrace/internal/leb128"
)

// DecodeModule parses a binary WebAssembly module from r.
func DecodeModule(r io.Reader) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: reading module: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("wasmbin: module too short to contain a header")
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return nil, fmt.Errorf("wasmbin: bad magic number %x", data[0:4])
	}
	if !bytes.Equal(data[4:8], Version[:]) {
		return nil, fmt.Errorf("wasmbin: unsupported version %x", data[4:8])
	}

	m := &Module{}
	cur := 8
	for cur < len(data) {
		id := data[cur]
		cur++
		size, n, err := leb128.LoadUint32(data[cur:])
		if err != nil {
			return nil, fmt.Errorf("wasmbin: reading section %#x size: %w", id, err)
		}
		cur += int(n)
		end := cur + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("wasmbin: section %#x size %d overruns module", id, size)
		}
		content := data[cur:end]
		cur = end

		m.Sections = append(m.Sections, RawSection{ID: id, Content: content})

		switch id {
		case SectionType:
			if m.Types, err = decodeTypeSection(content); err != nil {
				return nil, err
			}
		case SectionImport:
			if m.Imports, err = decodeImportSection(content); err != nil {
				return nil, err
			}
		case SectionFunction:
			if m.FunctionTypeIndices, err = decodeFunctionSection(content); err != nil {
				return nil, err
			}
		case SectionExport:
			if m.Exports, err = decodeExportSection(content); err != nil {
				return nil, err
			}
		case SectionCode:
			if m.Code, err = decodeCodeSection(content); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading string content: %w", err)
	}
	return string(buf), nil
}

func decodeTypeSection(content []byte) ([]FunctionType, error) {
	r := bytes.NewReader(content)
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: type section count: %w", err)
	}
	types := make([]FunctionType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil || form != 0x60 {
			return nil, fmt.Errorf("wasmbin: type %d: expected func form 0x60, got %#x (err %v)", i, form, err)
		}
		params, err := readValueTypeVector(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: type %d params: %w", i, err)
		}
		results, err := readValueTypeVector(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: type %d results: %w", i, err)
		}
		types = append(types, FunctionType{Params: params, Results: results})
	}
	return types, nil
}

func readValueTypeVector(r *bytes.Reader) ([]api.ValueType, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]api.ValueType, n)
	for i := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func decodeImportSection(content []byte) ([]Import, error) {
	r := bytes.NewReader(content)
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: import section count: %w", err)
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		mod, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: import %d module name: %w", i, err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: import %d field name: %w", i, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wasmbin: import %d kind: %w", i, err)
		}
		imp := Import{Module: mod, Name: name, Kind: kind}
		switch kind {
		case api.ExternTypeFunc:
			typeIdx, _, err := leb128.DecodeUint32(r)
			if err != nil {
				return nil, fmt.Errorf("wasmbin: import %d func type index: %w", i, err)
			}
			imp.FuncTypeIndex = typeIdx
		case api.ExternTypeTable:
			if err := skipTableType(r); err != nil {
				return nil, fmt.Errorf("wasmbin: import %d table type: %w", i, err)
			}
		case api.ExternTypeMemory:
			if err := skipLimits(r); err != nil {
				return nil, fmt.Errorf("wasmbin: import %d memory limits: %w", i, err)
			}
		case api.ExternTypeGlobal:
			if _, err := r.ReadByte(); err != nil { // value type
				return nil, fmt.Errorf("wasmbin: import %d global type: %w", i, err)
			}
			if _, err := r.ReadByte(); err != nil { // mutability
				return nil, fmt.Errorf("wasmbin: import %d global mutability: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("wasmbin: import %d: unknown kind %#x", i, kind)
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

func skipTableType(r *bytes.Reader) error {
	if _, err := r.ReadByte(); err != nil { // elemtype
		return err
	}
	return skipLimits(r)
}

func skipLimits(r *bytes.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	if _, _, err := leb128.DecodeUint32(r); err != nil { // min
		return err
	}
	if flags&0x1 != 0 {
		if _, _, err := leb128.DecodeUint32(r); err != nil { // max
			return err
		}
	}
	return nil
}

func decodeFunctionSection(content []byte) ([]uint32, error) {
	r := bytes.NewReader(content)
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: function section count: %w", err)
	}
	out := make([]uint32, count)
	for i := range out {
		v, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: function section entry %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeExportSection(content []byte) ([]Export, error) {
	r := bytes.NewReader(content)
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: export section count: %w", err)
	}
	out := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: export %d name: %w", i, err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("wasmbin: export %d kind: %w", i, err)
		}
		idx, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: export %d index: %w", i, err)
		}
		out = append(out, Export{Name: name, Kind: kind, Index: idx})
	}
	return out, nil
}

func decodeCodeSection(content []byte) ([]Code, error) {
	r := bytes.NewReader(content)
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("wasmbin: code section count: %w", err)
	}
	out := make([]Code, 0, count)
	for i := uint32(0); i < count; i++ {
		bodySize, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: code %d body size: %w", i, err)
		}
		body := make([]byte, bodySize)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("wasmbin: code %d body: %w", i, err)
		}
		code, err := decodeFunctionBody(body)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: code %d: %w", i, err)
		}
		out = append(out, code)
	}
	return out, nil
}

func decodeFunctionBody(body []byte) (Code, error) {
	r := bytes.NewReader(body)
	declCount, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return Code{}, fmt.Errorf("local decl count: %w", err)
	}
	locals := make([]Local, 0, declCount)
	for i := uint32(0); i < declCount; i++ {
		n, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return Code{}, fmt.Errorf("local decl %d count: %w", i, err)
		}
		t, err := r.ReadByte()
		if err != nil {
			return Code{}, fmt.Errorf("local decl %d type: %w", i, err)
		}
		locals = append(locals, Local{Count: n, Type: t})
	}
	rest := body[len(body)-r.Len():]
	instrs, err := decodeInstructions(rest)
	if err != nil {
		return Code{}, fmt.Errorf("instructions: %w", err)
	}
	return Code{Locals: locals, Instructions: instrs}, nil
}
