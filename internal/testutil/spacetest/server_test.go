package spacetest

import (
	"testing"

	"github.com/danmuck/tuplectl/internal/testutil/testlog"
	"github.com/danmuck/tuplectl/internal/tuple"
)

func TestMatchPositionalWithWildcards(t *testing.T) {
	testlog.Start(t)
	stored := tuple.Of(tuple.Int(42), tuple.String("hi"), tuple.Nested(tuple.Double(1.5), tuple.String("x")))
	cases := []struct {
		tmpl tuple.Tuple
		want bool
	}{
		{tuple.Of(tuple.Int(42), tuple.Wildcard(), tuple.Wildcard()), true},
		{tuple.Of(tuple.Wildcard(), tuple.String("hi"), tuple.Nested(tuple.Wildcard(), tuple.String("x"))), true},
		{tuple.Of(tuple.Int(42), tuple.String("hi")), false},
		{tuple.Of(tuple.Int(41), tuple.Wildcard(), tuple.Wildcard()), false},
		{tuple.Of(tuple.Int(42), tuple.Wildcard(), tuple.Nested(tuple.Wildcard())), false},
		{tuple.Of(tuple.Double(42), tuple.Wildcard(), tuple.Wildcard()), false},
	}
	for i, tc := range cases {
		if got := Match(tc.tmpl, stored); got != tc.want {
			t.Fatalf("case %d %s: got=%v want=%v", i, tc.tmpl, got, tc.want)
		}
	}
	if !MatchAny(nil, stored) {
		t.Fatalf("empty template set must match everything")
	}
}

func TestSeedAndSnapshotAreIndependent(t *testing.T) {
	testlog.Start(t)
	s := Start(t, tuple.Of(tuple.Int(1)))
	snap := s.Snapshot()
	snap[0][0] = tuple.Int(2)
	if !s.Snapshot()[0].Equal(tuple.Of(tuple.Int(1))) {
		t.Fatalf("snapshot aliases server storage")
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want=1", s.Len())
	}
}
