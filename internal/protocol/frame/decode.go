package frame

import (
	"bytes"
	"errors"
	"io"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/danmuck/tuplectl/internal/tuple"
)

// Decoder reads frames and protocol integers from a byte stream.
type Decoder struct {
	r        io.Reader
	limits   Limits
	rec      [RecordLen]byte
	consumed int64
}

func NewDecoder(r io.Reader, limits Limits) *Decoder {
	return &Decoder{r: r, limits: limits}
}

// Consumed returns the number of bytes read so far.
func (d *Decoder) Consumed() int64 { return d.consumed }

// Reader exposes the underlying stream for unframed trailing reads.
func (d *Decoder) Reader() io.Reader { return d.r }

// DecodeTuple decodes one frame from the front of b. It returns the tuple,
// whether a tuple was present (false for the sentinel) and the bytes consumed.
func DecodeTuple(b []byte) (tuple.Tuple, bool, int, error) {
	d := NewDecoder(bytes.NewReader(b), DefaultLimits())
	t, ok, err := d.ReadTuple()
	return t, ok, int(d.consumed), err
}

// ReadInt32 reads one protocol integer.
func (d *Decoder) ReadInt32() (int32, error) {
	if err := d.readFull(d.rec[:4]); err != nil {
		return 0, err
	}
	return int32(order.Uint32(d.rec[:4])), nil
}

// ReadTuple reads one frame. A NoTuple count yields an empty tuple and false
// without reading anything past the count.
func (d *Decoder) ReadTuple() (tuple.Tuple, bool, error) {
	return d.readFrame(0)
}

type pendingString struct {
	index  int
	offset int32
	length int32
}

func (d *Decoder) readFrame(depth int) (tuple.Tuple, bool, error) {
	if d.limits.MaxDepth > 0 && depth > d.limits.MaxDepth {
		return nil, false, ErrTooDeep
	}
	count, err := d.ReadInt32()
	if err != nil {
		return nil, false, err
	}
	if count == NoTuple {
		return tuple.Tuple{}, false, nil
	}
	if count < 0 {
		return nil, false, ErrNegativeCount
	}
	if d.limits.MaxElements > 0 && count > d.limits.MaxElements {
		return nil, false, ErrTooLarge
	}

	stringBytes, err := d.ReadInt32()
	if err != nil {
		return nil, false, err
	}
	if stringBytes < 0 {
		return nil, false, ErrNegativeCount
	}
	if d.limits.MaxStringBytes > 0 && stringBytes > d.limits.MaxStringBytes {
		return nil, false, ErrTooLarge
	}

	out := make(tuple.Tuple, 0, min(int(count), 1024))
	var pending []pendingString
	for range count {
		if err := d.readFull(d.rec[:]); err != nil {
			return nil, false, err
		}
		rec := d.rec
		switch int32(order.Uint32(rec[0:4])) {
		case TagInt:
			out = append(out, tuple.Int(int32(order.Uint32(rec[unionOffset:unionOffset+4]))))
		case TagDouble:
			bits := order.Uint64(rec[unionOffset : unionOffset+8])
			out = append(out, tuple.Double(math.Float64frombits(bits)))
		case TagString:
			p := pendingString{
				index:  len(out),
				offset: int32(order.Uint32(rec[unionOffset : unionOffset+4])),
				length: int32(order.Uint32(rec[lengthOffset : lengthOffset+4])),
			}
			if p.offset < 0 || p.length < 0 {
				return nil, false, ErrNegativeCount
			}
			pending = append(pending, p)
			out = append(out, tuple.String(""))
		case TagTuple:
			inner, _, err := d.readFrame(depth + 1)
			if err != nil {
				return nil, false, err
			}
			out = append(out, tuple.FromTuple(inner))
		case TagWildcard:
			out = append(out, tuple.Wildcard())
		default:
			// unknown tag: record consumed, no element
		}
	}

	var region []byte
	if stringBytes != 0 {
		region = make([]byte, stringBytes)
		if err := d.readFull(region); err != nil {
			return nil, false, err
		}
	}
	for _, p := range pending {
		end := int64(p.offset) + int64(p.length)
		if end > int64(len(region)) {
			return nil, false, ErrStringBounds
		}
		text := region[p.offset:end]
		if !utf8.Valid(text) {
			return nil, false, ErrInvalidUTF8
		}
		out[p.index] = tuple.String(string(text))
	}
	if err := checkOverlap(pending); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// checkOverlap rejects non-empty strings sharing bytes of the region. Gaps
// between strings are tolerated.
func checkOverlap(pending []pendingString) error {
	if len(pending) < 2 {
		return nil
	}
	spans := make([]pendingString, 0, len(pending))
	for _, p := range pending {
		if p.length > 0 {
			spans = append(spans, p)
		}
	}
	slices.SortFunc(spans, func(a, b pendingString) int { return int(a.offset) - int(b.offset) })
	for i := 1; i < len(spans); i++ {
		prevEnd := int64(spans[i-1].offset) + int64(spans[i-1].length)
		if int64(spans[i].offset) < prevEnd {
			return ErrStringOverlap
		}
	}
	return nil
}

func (d *Decoder) readFull(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	d.consumed += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}
