package protocol

import (
	"fmt"

	"github.com/danmuck/tuplectl/internal/tuple"
)

// ResponseShape names what a server sends back for a command.
type ResponseShape int

const (
	ResponseNone          ResponseShape = iota // nothing; success is a clean close
	ResponseTuple                              // one frame
	ResponseOptionalTuple                      // one frame or the no-tuple sentinel
	ResponseTupleList                          // i32 count then frames
	ResponseCount                              // one i32
	ResponseAck                                // i32 echo of the command code
	ResponseText                               // raw bytes until close
)

// Schema declares the request and response shape of one command.
type Schema struct {
	Command Command
	// RequestTuples is the fixed number of request frames. Ignored when Counted.
	RequestTuples int
	// Counted requests carry an i32 frame count before the frames.
	Counted  bool
	Response ResponseShape
}

var schemas = map[Command]Schema{
	Put:             {Command: Put, RequestTuples: 1, Response: ResponseNone},
	Get:             {Command: Get, RequestTuples: 1, Response: ResponseTuple},
	Read:            {Command: Read, RequestTuples: 1, Response: ResponseTuple},
	GetNonBlocking:  {Command: GetNonBlocking, RequestTuples: 1, Response: ResponseOptionalTuple},
	ReadNonBlocking: {Command: ReadNonBlocking, RequestTuples: 1, Response: ResponseOptionalTuple},
	Dump:            {Command: Dump, Counted: true, Response: ResponseTupleList},
	Count:           {Command: Count, Counted: true, Response: ResponseCount},
	Log:             {Command: Log, RequestTuples: 0, Response: ResponseText},
	Replace:         {Command: Replace, RequestTuples: 2, Response: ResponseAck},
}

func SchemaFor(c Command) (Schema, error) {
	s, ok := schemas[c]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %d", ErrUnknownCommand, int32(c))
	}
	return s, nil
}

// ValidateRequest checks that tuples fit the request shape of c.
func ValidateRequest(c Command, tuples []tuple.Tuple) error {
	s, err := SchemaFor(c)
	if err != nil {
		return err
	}
	if s.Counted {
		if int64(len(tuples)) > maxInt32 {
			return ErrTooManyTuples
		}
		return nil
	}
	if len(tuples) != s.RequestTuples {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArity, c, s.RequestTuples, len(tuples))
	}
	return nil
}
