// Package frame implements the recursive tuple frame encoding.
//
// A frame is:
//
//	element_count i32
//	string_bytes  i32            direct String text only
//	element_count 24-byte records
//	string_bytes  bytes of text  direct strings in record order
//
// A Tuple record is followed immediately by the complete nested frame of
// that element, so a parent's string region is written only after every
// nested frame below it. All integers and floats use host byte order.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/tuplectl/internal/tuple"
)

const (
	HeaderLen = 8
	RecordLen = 24

	// NoTuple in the element_count position means "no tuple" and ends the frame.
	NoTuple int32 = -1

	unionOffset  = 8
	lengthOffset = 16
)

// Element tags are the ASCII codes of the kind letters.
const (
	TagInt      int32 = 'i'
	TagDouble   int32 = 'd'
	TagString   int32 = 's'
	TagTuple    int32 = 't'
	TagWildcard int32 = '?'
)

var order = binary.NativeEndian

var (
	// ErrMalformed is wrapped by every decoding failure.
	ErrMalformed     = errors.New("frame: malformed tuple frame")
	ErrTruncated     = fmt.Errorf("%w: truncated data", ErrMalformed)
	ErrNegativeCount = fmt.Errorf("%w: negative count or length", ErrMalformed)
	ErrStringBounds  = fmt.Errorf("%w: string outside string region", ErrMalformed)
	ErrInvalidUTF8   = fmt.Errorf("%w: string is not valid utf-8", ErrMalformed)
	ErrTooLarge      = fmt.Errorf("%w: frame exceeds limits", ErrMalformed)
	ErrTooDeep       = fmt.Errorf("%w: nesting exceeds limits", ErrMalformed)
	ErrStringOverlap = fmt.Errorf("%w: strings overlap in string region", ErrMalformed)
)

// Limits constrains decode memory use. Zero fields are unbounded. Limits
// apply to decoding only, so a bounded decoder can reject frames that
// AppendTuple produces.
type Limits struct {
	MaxElements    int32
	MaxStringBytes int32
	MaxDepth       int
}

// DefaultLimits is unbounded: every frame AppendTuple produces decodes.
func DefaultLimits() Limits {
	return Limits{}
}

// TagOf returns the wire tag for a value kind.
func TagOf(k tuple.Kind) int32 {
	switch k {
	case tuple.KindInt:
		return TagInt
	case tuple.KindDouble:
		return TagDouble
	case tuple.KindString:
		return TagString
	case tuple.KindTuple:
		return TagTuple
	default:
		return TagWildcard
	}
}

// EncodeTuple returns the frame for t.
func EncodeTuple(t tuple.Tuple) ([]byte, error) {
	return AppendTuple(make([]byte, 0, EncodedLen(t)), t)
}

// EncodedLen is the exact byte length of t's frame.
func EncodedLen(t tuple.Tuple) int {
	n := HeaderLen + len(t)*RecordLen
	for _, v := range t {
		switch v.Kind() {
		case tuple.KindString:
			s, _ := v.Str()
			n += len(s)
		case tuple.KindTuple:
			inner, _ := v.Tuple()
			n += EncodedLen(inner)
		}
	}
	return n
}

// AppendTuple appends the frame for t to dst.
func AppendTuple(dst []byte, t tuple.Tuple) ([]byte, error) {
	if len(t) > math.MaxInt32 {
		return nil, ErrTooLarge
	}
	var stringBytes int
	for _, v := range t {
		if s, ok := v.Str(); ok {
			stringBytes += len(s)
		}
	}
	if stringBytes > math.MaxInt32 {
		return nil, ErrTooLarge
	}

	dst = order.AppendUint32(dst, uint32(int32(len(t))))
	dst = order.AppendUint32(dst, uint32(int32(stringBytes)))

	var offset int
	for _, v := range t {
		var rec [RecordLen]byte
		order.PutUint32(rec[0:4], uint32(TagOf(v.Kind())))
		switch v.Kind() {
		case tuple.KindInt:
			i, _ := v.Int()
			order.PutUint32(rec[unionOffset:unionOffset+4], uint32(i))
		case tuple.KindDouble:
			d, _ := v.Double()
			order.PutUint64(rec[unionOffset:unionOffset+8], math.Float64bits(d))
		case tuple.KindString:
			s, _ := v.Str()
			order.PutUint32(rec[unionOffset:unionOffset+4], uint32(int32(offset)))
			order.PutUint32(rec[lengthOffset:lengthOffset+4], uint32(int32(len(s))))
			offset += len(s)
		}
		dst = append(dst, rec[:]...)

		if inner, ok := v.Tuple(); ok {
			var err error
			dst, err = AppendTuple(dst, inner)
			if err != nil {
				return nil, err
			}
		}
	}

	// Own string region goes last, after every spliced nested frame.
	for _, v := range t {
		if s, ok := v.Str(); ok {
			dst = append(dst, s...)
		}
	}
	return dst, nil
}

// AppendNoTuple appends the "no tuple" sentinel frame.
func AppendNoTuple(dst []byte) []byte {
	return AppendInt32(dst, NoTuple)
}

// AppendInt32 appends one protocol integer.
func AppendInt32(dst []byte, v int32) []byte {
	return order.AppendUint32(dst, uint32(v))
}
