package instrument

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/wasmtrace/wasmtrace/api"
	"github.com/wasmtrace/wasmtrace/internal/metrics"
	"github.com/wasmtrace/wasmtrace/internal/wasmbin"
	"github.com/wasmtrace/wasmtrace/tracer"
	"github.com/wasmtrace/wasmtrace/wasmview"
)

// Stats summarizes one instrumentation run, for CLI diagnostics and the
// prometheus counters in internal/metrics.
type Stats struct {
	FunctionsInstrumented int
	FunctionsSkipped      int
	BytesIn               int
	BytesOut              int
}

// Module reads a WebAssembly module from r, instruments every eligible
// function, and writes the result to w. It returns the run's Stats, or a
// typed *Error describing what went wrong.
//
// Eligible functions are every module-internal function except the three
// anchors (__log_call, __expose_tracer, __expose_tracer_len); imported
// functions are never instrumented, since the instrumenter has no body to
// rewrite for them. Resolving __log_call's function-index-space id is
// mandatory even if the module defines no own functions: a module that
// can never be instrumented because it lacks the hook is still a
// configuration error worth surfacing.
func Module(log *logrus.Logger, r io.Reader, w io.Writer) (Stats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, newError(KindIO, err)
	}

	m, err := wasmbin.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return Stats{}, newError(KindDecode, err)
	}

	view := wasmview.New(m)

	hookIndex, ok := findExportedFunction(view, tracer.LogCallName)
	if !ok {
		return Stats{}, newError(KindAnchorMissing, ErrAnchorMissing)
	}

	stats := Stats{BytesIn: len(raw)}

	if m.OwnFunctionCount() > 0 && !m.HasCodeSection() {
		return Stats{}, newError(KindNoCodeSection, ErrNoCodeSection)
	}

	importedCount := m.ImportedFunctionCount()
	for i := range m.Code {
		functionIndex := uint32(importedCount + i)
		name, hasName := view.GetFunctionName(functionIndex)
		if hasName && tracer.IsAnchor(name) {
			stats.FunctionsSkipped++
			log.WithField("function", name).Debug("instrument: skipping anchor function")
			continue
		}

		typeIndex := m.FunctionTypeIndices[i]
		ty, _ := view.GetType(typeIndex)
		var resultType *api.ValueType
		if r, ok := ty.Result(); ok {
			resultType = &r
		}

		InstrumentFunction(&m.Code[i], functionIndex, len(ty.Params), resultType, hookIndex)
		stats.FunctionsInstrumented++
	}

	var out bytes.Buffer
	if err := wasmbin.EncodeModule(&out, m); err != nil {
		return Stats{}, newError(KindEncode, err)
	}
	stats.BytesOut = out.Len()

	if _, err := w.Write(out.Bytes()); err != nil {
		return Stats{}, newError(KindIO, err)
	}

	metrics.FunctionsInstrumented.Add(float64(stats.FunctionsInstrumented))
	metrics.FunctionsSkipped.Add(float64(stats.FunctionsSkipped))
	metrics.BytesProcessed.Add(float64(stats.BytesIn))

	log.WithFields(logrus.Fields{
		"instrumented": stats.FunctionsInstrumented,
		"skipped":      stats.FunctionsSkipped,
		"bytes_in":     stats.BytesIn,
		"bytes_out":    stats.BytesOut,
	}).Info("instrument: module rewritten")

	return stats, nil
}

func findExportedFunction(view *wasmview.ModuleView, name string) (uint32, bool) {
	it := view.Exports()
	for {
		exp, ok := it.Next()
		if !ok {
			return 0, false
		}
		if exp.Kind == api.ExternTypeFunc && exp.Name == name {
			return exp.Index, true
		}
	}
}
