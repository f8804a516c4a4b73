package client

import (
	"math/rand"
	"strings"
	"testing"
)

func TestFuzzSanitizePath(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	chars := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 -_()[]{}!@#$%^&*+=|\\/<>?\"'™®:éèêàçô.")
	for i := 0; i < 1000; i++ {
		l := r.Intn(64)
		runes := make([]rune, l)
		for j := 0; j < l; j++ {
			runes[j] = chars[r.Intn(len(chars))]
		}
		in := string(runes)
		out := SanitizePath(in)
		if out == "" {
			continue
		}
		if strings.ContainsAny(out, `/\`) {
			t.Fatalf("sanitize produced path separator for %q -> %q", in, out)
		}
		if strings.Trim(out, "-.") != out {
			t.Fatalf("sanitize produced leading/trailing separator for %q -> %q", in, out)
		}
		if out != strings.ToLower(out) {
			t.Fatalf("sanitize kept upper case for %q -> %q", in, out)
		}
	}
}

func TestExpandEscapesEveryParam(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	chars := []rune("abc123/?#% ")
	for i := 0; i < 500; i++ {
		runes := make([]rune, 1+r.Intn(12))
		for j := range runes {
			runes[j] = chars[r.Intn(len(chars))]
		}
		got := expand(EndpointSign, string(runes))
		if strings.Count(got, "/") != strings.Count(EndpointSign, "/") {
			t.Fatalf("expand let a separator through for %q -> %q", string(runes), got)
		}
		if strings.Contains(got, ":") {
			t.Fatalf("placeholder left in %q", got)
		}
	}
}
