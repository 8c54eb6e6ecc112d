package plugin

import (
	"io"
	"log"
)

// Load failures are reported on ops; successful installs on diag.
var (
	failureLog *log.Logger
	installLog *log.Logger
)

// SetLogWriters configures where load failures (ops) and installs (diag)
// are written. Pass nil to silence either. Loading is too infrequent to
// need a trace stream, so the third writer is ignored.
func SetLogWriters(ops, diag, _ io.Writer) {
	failureLog = pluginLogger(ops)
	installLog = pluginLogger(diag)
}

func pluginLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[plugin] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if failureLog != nil {
		failureLog.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if installLog != nil {
		installLog.Printf(format, args...)
	}
}
