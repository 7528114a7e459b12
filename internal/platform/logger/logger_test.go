package logger

import (
	"strings"
	"testing"
)

func TestScrubberRedactsSecretsAndImages(t *testing.T) {
	s := &scrubber{enabled: true}
	cases := []struct {
		key  string
		val  interface{}
		want string
	}{
		{key: "password", val: "hunter2", want: "[REDACTED]"},
		{key: "access_token", val: "abc", want: "[REDACTED]"},
		{key: "image_base64", val: "AAAA", want: "[REDACTED]"},
		{key: "note", val: "data:image/png;base64,AAAA", want: "[TRUNCATED len=26]"},
		{key: "barcode", val: "SEAL-001", want: "SEAL-001"},
	}
	for _, tc := range cases {
		if got := s.value(tc.key, tc.val); got != tc.want {
			t.Fatalf("value(%q): want=%v got=%v", tc.key, tc.want, got)
		}
	}
}

func TestScrubberHashesPeople(t *testing.T) {
	s := &scrubber{enabled: true, salt: "pepper"}
	a, ok := s.value("guard_id", "8d7c1b7e-0000-4000-8000-000000000001").(string)
	if !ok || !strings.HasPrefix(a, "hash:") || len(a) != len("hash:")+12 {
		t.Fatalf("guard_id: want=hash:<12 hex> got=%v", a)
	}
	if a == s.value("guard_id", "8d7c1b7e-0000-4000-8000-000000000002") {
		t.Fatalf("different ids must hash differently")
	}
	if a == (&scrubber{enabled: true}).value("guard_id", "8d7c1b7e-0000-4000-8000-000000000001") {
		t.Fatalf("salt must change the hash")
	}
}

func TestScrubberNestedAndDisabled(t *testing.T) {
	s := &scrubber{enabled: true}
	got := s.kvs([]interface{}{"details", map[string]interface{}{"secret": "x", "barcode": "S1"}, "dangling"})
	m := got[1].(map[string]interface{})
	if m["secret"] != "[REDACTED]" || m["barcode"] != "S1" || got[2] != "dangling" {
		t.Fatalf("kvs: got=%v", got)
	}
	off := &scrubber{}
	if kv := off.kvs([]interface{}{"password", "x"}); kv[1] != "x" {
		t.Fatalf("disabled: want=x got=%v", kv[1])
	}
}
