package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/tuplectl/internal/protocol/frame"
)

var (
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrArity          = errors.New("protocol: wrong number of tuples for command")
	ErrReplaceFailed  = errors.New("protocol: replace failed")
	ErrTooManyTuples  = errors.New("protocol: too many tuples")

	// ErrUnexpectedNoTuple reports a "no tuple" sentinel where a frame is required.
	ErrUnexpectedNoTuple = fmt.Errorf("%w: unexpected no-tuple sentinel", frame.ErrMalformed)
)
