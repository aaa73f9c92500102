package tuple

import (
	"math"
	"testing"
)

func TestValueAccessorsMatchKind(t *testing.T) {
	if v, ok := Int(42).Int(); !ok || v != 42 {
		t.Fatalf("int accessor: got=%d ok=%v", v, ok)
	}
	if _, ok := Int(42).Double(); ok {
		t.Fatalf("int must not report double")
	}
	if v, ok := Double(2.5).Double(); !ok || v != 2.5 {
		t.Fatalf("double accessor: got=%v ok=%v", v, ok)
	}
	if v, ok := String("hi").Str(); !ok || v != "hi" {
		t.Fatalf("string accessor: got=%q ok=%v", v, ok)
	}
	inner, ok := Nested(Int(1)).Tuple()
	if !ok || len(inner) != 1 {
		t.Fatalf("tuple accessor: got=%v ok=%v", inner, ok)
	}
	if !Wildcard().IsWildcard() || !(Value{}).IsWildcard() {
		t.Fatalf("zero value must be a wildcard")
	}
}

func TestEqualIsStructural(t *testing.T) {
	a := Of(Int(1), String("x"), Nested(Double(1.5), Nested()), Wildcard())
	b := Of(Int(1), String("x"), Nested(Double(1.5), Nested()), Wildcard())
	if !a.Equal(b) {
		t.Fatalf("expected equal: %s vs %s", a, b)
	}
	c := Of(Int(1), String("x"), Nested(Double(1.5), Nested(Int(0))), Wildcard())
	if a.Equal(c) {
		t.Fatalf("nested difference not detected")
	}
	if Int(1).Equal(Double(1)) {
		t.Fatalf("kinds must differ")
	}
	nan := Double(math.NaN())
	if !nan.Equal(nan) {
		t.Fatalf("same NaN bits should compare equal")
	}
	if !Of().Equal(nil) {
		t.Fatalf("empty and nil tuples should compare equal")
	}
}

func TestStringRendering(t *testing.T) {
	tup := Of(Int(42), Double(0.5), String("hi"), Nested(Int(1), Wildcard()), Wildcard())
	want := `[Int(42), Double(0.5), String("hi"), Tuple[Int(1), ?], ?]`
	if got := tup.String(); got != want {
		t.Fatalf("render mismatch:\n got=%s\nwant=%s", got, want)
	}
	if got := Nested().String(); got != "Tuple[]" {
		t.Fatalf("empty nested render: %s", got)
	}
}

func TestIsTemplateFindsNestedWildcard(t *testing.T) {
	if Of(Int(1), String("a")).IsTemplate() {
		t.Fatalf("concrete tuple reported as template")
	}
	if !Of(Int(1), Nested(String("a"), Nested(Wildcard()))).IsTemplate() {
		t.Fatalf("nested wildcard not found")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Of(Nested(Int(1)))
	cp := orig.Clone()
	inner, _ := cp[0].Tuple()
	inner[0] = Int(2)
	if !orig.Equal(Of(Nested(Int(1)))) {
		t.Fatalf("clone shares nested storage: %s", orig)
	}
}
