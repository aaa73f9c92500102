package frame

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/danmuck/tuplectl/internal/testutil/testlog"
	"github.com/danmuck/tuplectl/internal/tuple"
)

func i32(v int32) []byte { return AppendInt32(nil, v) }

func record(tag int32, words ...int32) []byte {
	var rec [RecordLen]byte
	order.PutUint32(rec[0:4], uint32(tag))
	if len(words) > 0 {
		order.PutUint32(rec[8:12], uint32(words[0]))
	}
	if len(words) > 1 {
		order.PutUint32(rec[16:20], uint32(words[1]))
	}
	return rec[:]
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	cases := []tuple.Tuple{
		tuple.Of(),
		tuple.Of(tuple.Int(0)),
		tuple.Of(tuple.Int(math.MinInt32), tuple.Int(math.MaxInt32)),
		tuple.Of(tuple.Double(-0.0), tuple.Double(math.Inf(1)), tuple.Double(3.25)),
		tuple.Of(tuple.String(""), tuple.String("héllo"), tuple.String("")),
		tuple.Of(tuple.Wildcard(), tuple.Int(7), tuple.Wildcard()),
		tuple.Of(tuple.Nested()),
		tuple.Of(
			tuple.String("outer"),
			tuple.Nested(tuple.String("inner"), tuple.Nested(tuple.String("deep"), tuple.Wildcard())),
			tuple.Double(1.5),
			tuple.String("tail"),
		),
	}
	for i, in := range cases {
		b, err := EncodeTuple(in)
		if err != nil {
			t.Fatalf("case %d encode: %v", i, err)
		}
		if len(b) != EncodedLen(in) {
			t.Fatalf("case %d length: got=%d want=%d", i, len(b), EncodedLen(in))
		}
		out, ok, n, err := DecodeTuple(b)
		if err != nil {
			t.Fatalf("case %d decode: %v", i, err)
		}
		if !ok {
			t.Fatalf("case %d: decoded as sentinel", i)
		}
		if n != len(b) {
			t.Fatalf("case %d consumed=%d want=%d", i, n, len(b))
		}
		if !in.Equal(out) {
			t.Fatalf("case %d mismatch:\n got=%s\nwant=%s", i, out, in)
		}
	}
}

func TestStringRegionOffsets(t *testing.T) {
	testlog.Start(t)
	in := tuple.Of(tuple.String("ab"), tuple.Int(1), tuple.String("cde"))
	b, err := EncodeTuple(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := concat(
		i32(3), i32(5),
		record(TagString, 0, 2),
		record(TagInt, 1),
		record(TagString, 2, 3),
		[]byte("abcde"),
	)
	if !bytes.Equal(b, want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", b, want)
	}
}

func TestNestedFrameIsSplicedBeforeParentStrings(t *testing.T) {
	testlog.Start(t)
	in := tuple.Of(tuple.Nested(tuple.Int(1)), tuple.String("x"))
	b, err := EncodeTuple(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := concat(
		i32(2), i32(1),
		record(TagTuple),
		i32(1), i32(0), record(TagInt, 1),
		record(TagString, 0, 1),
		[]byte("x"),
	)
	if !bytes.Equal(b, want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", b, want)
	}
	out, _, _, err := DecodeTuple(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !in.Equal(out) {
		t.Fatalf("mismatch: got=%s want=%s", out, in)
	}
}

func TestNestedStringsStayInNestedRegion(t *testing.T) {
	testlog.Start(t)
	in := tuple.Of(tuple.String("p"), tuple.Nested(tuple.String("qq")))
	b, err := EncodeTuple(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := concat(
		i32(2), i32(1),
		record(TagString, 0, 1),
		record(TagTuple),
		i32(1), i32(2), record(TagString, 0, 2), []byte("qq"),
		[]byte("p"),
	)
	if !bytes.Equal(b, want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", b, want)
	}
}

type failAfterReader struct {
	data []byte
}

func (r *failAfterReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, errors.New("read past sentinel")
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSentinelStopsDecoding(t *testing.T) {
	testlog.Start(t)
	d := NewDecoder(&failAfterReader{data: AppendNoTuple(nil)}, DefaultLimits())
	out, ok, err := d.ReadTuple()
	if err != nil {
		t.Fatalf("decode sentinel: %v", err)
	}
	if ok {
		t.Fatalf("sentinel reported as present")
	}
	if len(out) != 0 {
		t.Fatalf("expected empty tuple, got %s", out)
	}
	if d.Consumed() != 4 {
		t.Fatalf("consumed=%d want=4", d.Consumed())
	}
}

func TestDecodeTruncatedIsDeterministic(t *testing.T) {
	testlog.Start(t)
	b, err := EncodeTuple(tuple.Of(tuple.String("abc"), tuple.Nested(tuple.Int(2))))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for cut := 0; cut < len(b); cut++ {
		_, _, _, err := DecodeTuple(b[:cut])
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("cut=%d expected ErrTruncated, got %v", cut, err)
		}
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("cut=%d expected ErrMalformed parent", cut)
		}
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	testlog.Start(t)
	b := concat(i32(1), i32(2), record(TagString, 0, 2), []byte{0xff, 0xfe})
	if _, _, _, err := DecodeTuple(b); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestDecodeStringOutsideRegion(t *testing.T) {
	testlog.Start(t)
	b := concat(i32(1), i32(2), record(TagString, 1, 2), []byte("ab"))
	if _, _, _, err := DecodeTuple(b); !errors.Is(err, ErrStringBounds) {
		t.Fatalf("expected ErrStringBounds, got %v", err)
	}
	b = concat(i32(1), i32(0), record(TagString, 0, 1))
	if _, _, _, err := DecodeTuple(b); !errors.Is(err, ErrStringBounds) {
		t.Fatalf("expected ErrStringBounds without region, got %v", err)
	}
}

func TestDecodeOverlappingStrings(t *testing.T) {
	testlog.Start(t)
	b := concat(i32(2), i32(3), record(TagString, 0, 2), record(TagString, 1, 2), []byte("abc"))
	if _, _, _, err := DecodeTuple(b); !errors.Is(err, ErrStringOverlap) {
		t.Fatalf("expected ErrStringOverlap, got %v", err)
	}

	// reversed record order, disjoint spans, plus an empty string inside a span
	b = concat(i32(3), i32(3), record(TagString, 2, 1), record(TagString, 0, 2), record(TagString, 1, 0), []byte("abc"))
	out, ok, _, err := DecodeTuple(b)
	if err != nil || !ok {
		t.Fatalf("disjoint spans: ok=%v err=%v", ok, err)
	}
	want := tuple.Of(tuple.String("c"), tuple.String("ab"), tuple.String(""))
	if !want.Equal(out) {
		t.Fatalf("got=%s want=%s", out, want)
	}
}

func TestDefaultLimitsDecodeWhatEncodes(t *testing.T) {
	testlog.Start(t)
	if DefaultLimits() != (Limits{}) {
		t.Fatalf("default limits should be unbounded: %+v", DefaultLimits())
	}

	deep := tuple.Of(tuple.Int(1))
	for range 300 {
		deep = tuple.Of(tuple.FromTuple(deep))
	}
	b, err := EncodeTuple(deep)
	if err != nil {
		t.Fatalf("encode deep: %v", err)
	}
	got, ok, n, err := DecodeTuple(b)
	if err != nil || !ok {
		t.Fatalf("decode deep: ok=%v err=%v", ok, err)
	}
	if n != len(b) || !deep.Equal(got) {
		t.Fatalf("deep round trip mismatch: consumed=%d len=%d", n, len(b))
	}

	wide := make(tuple.Tuple, 1<<20+1)
	for i := range wide {
		wide[i] = tuple.Int(int32(i))
	}
	b, err = EncodeTuple(wide)
	if err != nil {
		t.Fatalf("encode wide: %v", err)
	}
	got, _, _, err = DecodeTuple(b)
	if err != nil {
		t.Fatalf("decode wide: %v", err)
	}
	if !wide.Equal(got) {
		t.Fatalf("wide round trip mismatch")
	}
}

func TestDecodeNegativeCounts(t *testing.T) {
	testlog.Start(t)
	if _, _, _, err := DecodeTuple(i32(-2)); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount for count, got %v", err)
	}
	if _, _, _, err := DecodeTuple(concat(i32(0), i32(-1))); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount for string bytes, got %v", err)
	}
	b := concat(i32(1), i32(0), record(TagString, -1, 0))
	if _, _, _, err := DecodeTuple(b); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount for offset, got %v", err)
	}
}

func TestDecodeUnknownTagIsSkipped(t *testing.T) {
	testlog.Start(t)
	b := concat(
		i32(3), i32(1),
		record('z', 99),
		record(TagInt, 5),
		record(TagString, 0, 1),
		[]byte("k"),
	)
	out, ok, n, err := DecodeTuple(b)
	if err != nil || !ok {
		t.Fatalf("decode: ok=%v err=%v", ok, err)
	}
	if n != len(b) {
		t.Fatalf("consumed=%d want=%d", n, len(b))
	}
	want := tuple.Of(tuple.Int(5), tuple.String("k"))
	if !want.Equal(out) {
		t.Fatalf("got=%s want=%s", out, want)
	}
}

func TestDecodeLimits(t *testing.T) {
	testlog.Start(t)
	limits := Limits{MaxElements: 2, MaxStringBytes: 4, MaxDepth: 1}

	b, _ := EncodeTuple(tuple.Of(tuple.Int(1), tuple.Int(2), tuple.Int(3)))
	if _, _, err := NewDecoder(bytes.NewReader(b), limits).ReadTuple(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for elements, got %v", err)
	}
	b, _ = EncodeTuple(tuple.Of(tuple.String("hello")))
	if _, _, err := NewDecoder(bytes.NewReader(b), limits).ReadTuple(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for strings, got %v", err)
	}
	b, _ = EncodeTuple(tuple.Of(tuple.Nested(tuple.Nested())))
	if _, _, err := NewDecoder(bytes.NewReader(b), limits).ReadTuple(); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
	b, _ = EncodeTuple(tuple.Of(tuple.Nested(tuple.Int(1))))
	if _, _, err := NewDecoder(bytes.NewReader(b), limits).ReadTuple(); err != nil {
		t.Fatalf("depth 1 should decode: %v", err)
	}
}

func TestDecoderReadsConsecutiveFrames(t *testing.T) {
	testlog.Start(t)
	first := tuple.Of(tuple.String("a"))
	second := tuple.Of(tuple.Nested(tuple.String("b")))
	var b []byte
	b = AppendInt32(b, 2)
	b, _ = AppendTuple(b, first)
	b, _ = AppendTuple(b, second)

	d := NewDecoder(bytes.NewReader(b), DefaultLimits())
	n, err := d.ReadInt32()
	if err != nil || n != 2 {
		t.Fatalf("count: n=%d err=%v", n, err)
	}
	got1, _, err := d.ReadTuple()
	if err != nil || !first.Equal(got1) {
		t.Fatalf("first: got=%s err=%v", got1, err)
	}
	got2, _, err := d.ReadTuple()
	if err != nil || !second.Equal(got2) {
		t.Fatalf("second: got=%s err=%v", got2, err)
	}
	if _, err := d.ReadInt32(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated at end, got %v", err)
	}
	if _, err := io.ReadAll(d.Reader()); err != nil {
		t.Fatalf("read rest: %v", err)
	}
}
