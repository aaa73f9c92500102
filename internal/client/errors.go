package client

import (
	"errors"
	"fmt"

	"github.com/danmuck/tuplectl/internal/protocol"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
)

var (
	ErrAddressRequired      = errors.New("client: address required")
	ErrHalfCloseUnsupported = errors.New("client: connection cannot half-close")
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindConnection covers dial, write, read and deadline failures.
	KindConnection Kind = iota + 1
	// KindProtocol covers malformed requests and responses.
	KindProtocol
	// KindFailed is a well-formed answer reporting the operation did not happen.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// OpError is returned by every failed operation.
type OpError struct {
	Command protocol.Command
	Addr    string
	Kind    Kind
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("client: %s %s: %s: %v", e.Command, e.Addr, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func classify(err error) Kind {
	switch {
	case errors.Is(err, protocol.ErrReplaceFailed):
		return KindFailed
	case errors.Is(err, frame.ErrMalformed),
		errors.Is(err, protocol.ErrArity),
		errors.Is(err, protocol.ErrUnknownCommand),
		errors.Is(err, protocol.ErrTooManyTuples):
		return KindProtocol
	default:
		return KindConnection
	}
}

func kindOf(err error) (Kind, bool) {
	var op *OpError
	if !errors.As(err, &op) {
		return 0, false
	}
	return op.Kind, true
}

func IsConnection(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConnection
}

func IsProtocol(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindProtocol
}

func IsFailed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindFailed
}
