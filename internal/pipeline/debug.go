package pipeline

import (
	"io"
	"log"
)

// Compile failures go to ops. Decisions the compiler makes on the user's
// behalf (glob expansion, plugin autoload) go to diag, and per-node
// extraction detail to trace.
var logs struct {
	ops, diag, trace *log.Logger
}

// SetLogWriters configures the compiler's ops, diag and trace streams.
// Pass nil for any writer to silence that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs.ops = streamLogger(ops)
	logs.diag = streamLogger(diag)
	logs.trace = streamLogger(trace)
}

func streamLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[pipeline] ", log.LstdFlags|log.Lmicroseconds)
}

func printf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}

func opsf(format string, args ...interface{})   { printf(logs.ops, format, args...) }
func diagf(format string, args ...interface{})  { printf(logs.diag, format, args...) }
func tracef(format string, args ...interface{}) { printf(logs.trace, format, args...) }
