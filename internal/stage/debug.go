package stage

import (
	"io"
	"log"
)

var traceLogger *log.Logger

// SetTraceWriter enables per-stage creation tracing. Pass nil to disable.
func SetTraceWriter(w io.Writer) {
	if w == nil {
		traceLogger = nil
		return
	}
	traceLogger = log.New(w, "[stage] ", log.LstdFlags|log.Lmicroseconds)
}

func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
