package cachekey

import (
	"fmt"
	"testing"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive("GET", "http://example.com/a")
	b := Derive("GET", "http://example.com/a")
	if a != b {
		t.Fatalf("same input produced different keys: %s vs %s", a, b)
	}
	if !a.Valid() {
		t.Fatalf("derived key should be valid hex: %s", a)
	}
}

func TestDeriveKnownVector(t *testing.T) {
	// sha256("GET:http://example.com/a")
	const want = "1f600f857e510a74966d85ce1ac6603851ca2322091744f52e822e077b432714"
	if got := Derive("GET", "http://example.com/a"); got != Key(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDeriveDistinguishesInputs(t *testing.T) {
	testCases := []struct {
		name string
		a, b [2]string
	}{
		{"method", [2]string{"GET", "http://example.com/a"}, [2]string{"POST", "http://example.com/a"}},
		{"query order", [2]string{"GET", "http://example.com/?a=1&b=2"}, [2]string{"GET", "http://example.com/?b=2&a=1"}},
		{"trailing slash", [2]string{"GET", "http://example.com/a"}, [2]string{"GET", "http://example.com/a/"}},
		{"host case", [2]string{"GET", "http://example.com/a"}, [2]string{"GET", "http://EXAMPLE.com/a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if Derive(tc.a[0], tc.a[1]) == Derive(tc.b[0], tc.b[1]) {
				t.Fatalf("expected distinct keys for %v and %v", tc.a, tc.b)
			}
		})
	}
}

func TestDeriveCollisionResistance(t *testing.T) {
	methods := []string{"GET", "HEAD", "POST", "PUT"}
	seen := make(map[Key]string, 10000)
	for i := 0; i < 10000; i++ {
		method := methods[i%len(methods)]
		url := fmt.Sprintf("http://host-%d.example.com/path/%d?q=%d", i%97, i, i*31)
		id := method + " " + url
		key := Derive(method, url)
		if prev, exists := seen[key]; exists {
			t.Fatalf("collision between %q and %q", prev, id)
		}
		seen[key] = id
	}
}

func TestDeriveAcceptsAnyString(t *testing.T) {
	key := Derive("", "")
	if !key.Valid() {
		t.Fatalf("empty input should still yield a valid key")
	}
}

func TestParseKey(t *testing.T) {
	valid := Derive("GET", "http://example.com/")
	if _, err := ParseKey(valid.String()); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	for _, raw := range []string{"", "abc", valid.String()[:63] + "Z", valid.String() + "0"} {
		if _, err := ParseKey(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
