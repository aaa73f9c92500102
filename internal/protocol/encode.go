package protocol

import (
	"math"

	"github.com/danmuck/tuplectl/internal/protocol/frame"
	"github.com/danmuck/tuplectl/internal/tuple"
)

const maxInt32 = math.MaxInt32

// EncodeRequest returns the complete request bytes for one exchange.
func EncodeRequest(c Command, tuples ...tuple.Tuple) ([]byte, error) {
	size := 8
	for _, t := range tuples {
		size += frame.EncodedLen(t)
	}
	return AppendRequest(make([]byte, 0, size), c, tuples...)
}

// AppendRequest appends the command code and payload for c.
func AppendRequest(dst []byte, c Command, tuples ...tuple.Tuple) ([]byte, error) {
	if err := ValidateRequest(c, tuples); err != nil {
		return nil, err
	}
	s, _ := SchemaFor(c)

	dst = frame.AppendInt32(dst, int32(c))
	if s.Counted {
		dst = frame.AppendInt32(dst, int32(len(tuples)))
	}
	return appendTuples(dst, tuples)
}

// AppendMatch appends a single-tuple response. When found is false the
// no-tuple sentinel is written instead.
func AppendMatch(dst []byte, t tuple.Tuple, found bool) ([]byte, error) {
	if !found {
		return frame.AppendNoTuple(dst), nil
	}
	return frame.AppendTuple(dst, t)
}

// AppendDump appends a Dump response.
func AppendDump(dst []byte, tuples []tuple.Tuple) ([]byte, error) {
	if int64(len(tuples)) > maxInt32 {
		return nil, ErrTooManyTuples
	}
	dst = frame.AppendInt32(dst, int32(len(tuples)))
	return appendTuples(dst, tuples)
}

// AppendCount appends a Count response.
func AppendCount(dst []byte, n int32) []byte {
	return frame.AppendInt32(dst, n)
}

// AppendReplaceAck appends the Replace outcome. Failure is any code other
// than Replace; -1 is used.
func AppendReplaceAck(dst []byte, ok bool) []byte {
	if ok {
		return frame.AppendInt32(dst, int32(Replace))
	}
	return frame.AppendInt32(dst, -1)
}

func appendTuples(dst []byte, tuples []tuple.Tuple) ([]byte, error) {
	var err error
	for _, t := range tuples {
		dst, err = frame.AppendTuple(dst, t)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
