package tuple

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrNotArray      = errors.New("tuple: literal must be a JSON array")
	ErrIntRange      = errors.New("tuple: integer out of int32 range")
	ErrUnsupported   = errors.New("tuple: unsupported literal element")
	ErrTrailingInput = errors.New("tuple: trailing input after literal")
	ErrNonFinite     = errors.New("tuple: non-finite double has no literal form")
)

// ParseTuple reads the JSON text form of a tuple:
//
//	[42, 3.5, "hi", null, [1, "x"]]
//
// Integers become Int, numbers with a fraction or exponent become Double,
// null is a Wildcard and nested arrays are nested tuples.
func ParseTuple(s string) (Tuple, error) {
	return parseTuple(strings.NewReader(s))
}

func parseTuple(r io.Reader) (Tuple, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tuple: parse literal: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingInput
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	return fromJSONArray(arr)
}

func fromJSONArray(arr []any) (Tuple, error) {
	out := make(Tuple, 0, len(arr))
	for i, item := range arr {
		v, err := fromJSONValue(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func fromJSONValue(item any) (Value, error) {
	switch x := item.(type) {
	case nil:
		return Wildcard(), nil
	case string:
		return String(x), nil
	case json.Number:
		return fromJSONNumber(x)
	case []any:
		t, err := fromJSONArray(x)
		if err != nil {
			return Value{}, err
		}
		return FromTuple(t), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, item)
	}
}

func fromJSONNumber(n json.Number) (Value, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return Value{}, err
		}
		return Double(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrIntRange, s)
	}
	return Int(int32(i)), nil
}

// MarshalJSON renders t in the literal form accepted by ParseTuple.
func (t Tuple) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(t))
}

func (t *Tuple) UnmarshalJSON(b []byte) error {
	parsed, err := parseTuple(bytes.NewReader(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, int64(v.i), 10), nil
	case KindDouble:
		if math.IsNaN(v.d) || math.IsInf(v.d, 0) {
			return nil, ErrNonFinite
		}
		s := strconv.FormatFloat(v.d, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case KindString:
		return json.Marshal(v.s)
	case KindTuple:
		return v.t.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("tuple: parse value: %w", err)
	}
	parsed, err := fromJSONValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
