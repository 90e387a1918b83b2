package wasmbin

import (
	"io"

	"github.com/wasmtrace/wasmtrace/internal/leb128"
)

// EncodeModule serializes m to w.
//
// Every section is re-emitted in its original order. A section reuses its
// original raw bytes verbatim unless it is the code section and m.Code is
// non-nil, in which case the code section is regenerated from m.Code — the
// only section the instrumenter is expected to mutate. This is what gives
// the instrumenter its byte-identical-except-for-code-and-local-counts
// output guarantee for free: nothing else in the module is ever
// re-interpreted or re-serialized.
func EncodeModule(w io.Writer, m *Module) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if _, err := w.Write(Version[:]); err != nil {
		return err
	}
	for _, s := range m.Sections {
		content := s.Content
		if s.ID == SectionCode && m.Code != nil {
			content = encodeCodeSection(m.Code)
		}
		if _, err := w.Write([]byte{s.ID}); err != nil {
			return err
		}
		if _, err := w.Write(leb128.EncodeUint32(uint32(len(content)))); err != nil {
			return err
		}
		if _, err := w.Write(content); err != nil {
			return err
		}
	}
	return nil
}

func encodeCodeSection(codes []Code) []byte {
	out := leb128.EncodeUint32(uint32(len(codes)))
	for _, c := range codes {
		body := encodeFunctionBody(c)
		out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
		out = append(out, body...)
	}
	return out
}

func encodeFunctionBody(c Code) []byte {
	out := leb128.EncodeUint32(uint32(len(c.Locals)))
	for _, l := range c.Locals {
		out = append(out, leb128.EncodeUint32(l.Count)...)
		out = append(out, l.Type)
	}
	out = append(out, encodeInstructions(c.Instructions)...)
	return out
}
