package rx

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrOverflow is reported when an Error-policy demand channel is full.
	ErrOverflow = errors.New("rx: demand channel overflow")
	// ErrProtocolViolation is reported when a producer signals after a terminal.
	ErrProtocolViolation = errors.New("rx: signal after terminal")
	// ErrNilFlux is reported when a FlatMap function returns nil.
	ErrNilFlux = errors.New("rx: nil flux")
)

// ErrorKind classifies failures delivered through OnError.
type ErrorKind int8

const (
	// KindUnknown is any error raised by user code through Sink.Error or Error.
	KindUnknown ErrorKind = iota
	// KindTransformation is a failure inside an operator function.
	KindTransformation
	// KindProducer is a panic inside a Create generator.
	KindProducer
	// KindOverflow is a full demand channel under the Error policy.
	KindOverflow
	// KindProtocol is a misbehaving producer. It is reported to hooks, never to the sink.
	KindProtocol
)

var errorKindNames = map[ErrorKind]string{
	KindUnknown:        "UNKNOWN",
	KindTransformation: "TRANSFORMATION",
	KindProducer:       "PRODUCER",
	KindOverflow:       "OVERFLOW",
	KindProtocol:       "PROTOCOL",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Fault is a classified stream failure.
type Fault struct {
	Kind  ErrorKind
	cause error
}

func newFault(kind ErrorKind, cause error) *Fault {
	return &Fault{Kind: kind, cause: cause}
}

func (e *Fault) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *Fault) Unwrap() error {
	return e.cause
}

// Cause returns the underlying error.
func (e *Fault) Cause() error {
	return e.cause
}

// KindOf returns the kind of a stream failure, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Fault
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func violation(format string, args ...interface{}) error {
	return newFault(KindProtocol, pkgerrors.Wrapf(ErrProtocolViolation, format, args...))
}

// tryRecover converts a recovered panic value into an error.
func tryRecover(rec interface{}) error {
	switch v := rec.(type) {
	case nil:
		return nil
	case error:
		return pkgerrors.WithStack(v)
	case string:
		return pkgerrors.New(v)
	default:
		return pkgerrors.Errorf("%v", v)
	}
}
