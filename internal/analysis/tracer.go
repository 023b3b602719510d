package analysis

import (
	"fmt"
	"io"

	"github.com/gitrdm/ghostq/internal/circuit"
)

// AnalysisPosition is the snapshot handed to a Tracer after each
// resolution step: the trail being analyzed and the working sequent's
// current trigger set, mirroring the teacher solver's
// SearchPosition/Tracer split between "what happened" and "who wants
// to know".
type AnalysisPosition struct {
	Trail   Trail
	Working []circuit.Literal
}

// Tracer observes each resolution step of Analyze, for debugging and
// proof-log output.
type Tracer interface {
	Trace(p AnalysisPosition)
}

// DefaultTracer discards every trace event.
type DefaultTracer struct{}

func (DefaultTracer) Trace(_ AnalysisPosition) {}

// LoggingTracer writes a human-readable line per resolution step to
// Writer.
type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p AnalysisPosition) {
	fmt.Fprintf(t.Writer, "resolve: working trigger set = %v\n", p.Working)
}
