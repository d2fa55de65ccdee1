package envutil

import (
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Setenv("ATTN_TEST_STR", "  value ")
	t.Setenv("ATTN_TEST_INT", "12")
	t.Setenv("ATTN_TEST_BAD_INT", "twelve")
	t.Setenv("ATTN_TEST_BOOL", "yes")
	t.Setenv("ATTN_TEST_DUR", "750ms")
	t.Setenv("ATTN_TEST_SECS", "30")

	if got := String("ATTN_TEST_STR", "x"); got != "value" {
		t.Fatalf("String=%q", got)
	}
	if got := String("ATTN_TEST_MISSING", "x"); got != "x" {
		t.Fatalf("String default=%q", got)
	}
	if got := Int("ATTN_TEST_INT", 1); got != 12 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("ATTN_TEST_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback=%d", got)
	}
	if !Bool("ATTN_TEST_BOOL", false) {
		t.Fatalf("Bool=false")
	}
	if got := Duration("ATTN_TEST_DUR", time.Second); got != 750*time.Millisecond {
		t.Fatalf("Duration=%v", got)
	}
	if got := Duration("ATTN_TEST_SECS", time.Second); got != 30*time.Second {
		t.Fatalf("Duration secs=%v", got)
	}
}
