package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("TRIPSEAL_TEST_DUR", "15")
	if got := Duration("TRIPSEAL_TEST_DUR", time.Second); got != 15*time.Second {
		t.Fatalf("seconds: want=15s got=%s", got)
	}
	t.Setenv("TRIPSEAL_TEST_DUR", "250ms")
	if got := Duration("TRIPSEAL_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("go syntax: want=250ms got=%s", got)
	}
	t.Setenv("TRIPSEAL_TEST_DUR", "soon")
	if got := Duration("TRIPSEAL_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("fallback: want=1s got=%s", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("TRIPSEAL_TEST_LIST", " a, ,b ")
	got := List("TRIPSEAL_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: unexpected %v", got)
	}
	t.Setenv("TRIPSEAL_TEST_BOOL", "off")
	if Bool("TRIPSEAL_TEST_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
}
