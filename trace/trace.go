// Package trace defines the logging sink the codecs report to.
//
// Nothing in this module logs through a process wide logger. A Tracer is
// handed to each Scratch or Encoder, and the default discards everything.
// Select and Module adapt the two logging packages used by the
// surrounding applications.
package trace

import (
	"github.com/npillmayer/schuko/tracing"
	logging "github.com/op/go-logging"
)

// Tracer receives diagnostic output.
// Implementations must be safe for concurrent use if shared between goroutines.
type Tracer interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nop struct{}

func (nop) Debugf(string, ...interface{}) {}
func (nop) Infof(string, ...interface{})  {}
func (nop) Errorf(string, ...interface{}) {}

// Nop returns a Tracer that discards everything.
func Nop() Tracer {
	return nop{}
}

// OrNop returns t, or a Tracer that discards everything if t is nil.
func OrNop(t Tracer) Tracer {
	if t == nil {
		return nop{}
	}
	return t
}

// Select returns the schuko tracer registered for key.
func Select(key string) Tracer {
	return tracing.Select(key)
}

// Module returns the go-logging logger for module.
func Module(module string) Tracer {
	return logging.MustGetLogger(module)
}
