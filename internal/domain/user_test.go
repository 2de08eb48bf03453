package domain

import (
	"strings"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	ok := map[string]string{
		"  alice ":                          "alice",
		"bob.smith@corp":                    "bob.smith@corp",
		"a+b-c_d":                           "a+b-c_d",
		"Zoë":                               "Zoë",
		strings.Repeat("x", MaxUsernameLen): strings.Repeat("x", MaxUsernameLen),
	}
	for in, want := range ok {
		got, err := NormalizeUsername(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeUsername(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := NormalizeUsername(" \t "); !Is(err, "missing_field") {
		t.Fatalf("blank: expected missing_field, got %v", err)
	}
	for _, in := range []string{"bad name!", "semi;colon", "slash/name", strings.Repeat("x", MaxUsernameLen+1)} {
		if _, err := NormalizeUsername(in); !Is(err, "invalid_field") {
			t.Fatalf("NormalizeUsername(%q): expected invalid_field, got %v", in, err)
		}
	}
}
