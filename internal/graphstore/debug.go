package graphstore

import (
	"io"
	"log"
)

var diagLogger *log.Logger

// SetLogWriter configures the diag stream. Pass nil to disable it.
func SetLogWriter(diag io.Writer) {
	if diag == nil {
		diagLogger = nil
		return
	}
	diagLogger = log.New(diag, "[graphstore] ", log.LstdFlags|log.Lmicroseconds)
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
