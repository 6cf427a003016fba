// File: internal/shm/options_test.go
// Author: momentics <momentics@gmail.com>

package shm

import (
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"qA", "/qA", false},
		{"/qA", "/qA", false},
		{"", "", true},
		{"a/b", "", true},
		{strings.Repeat("x", MaxNameLength+1), "", true},
		{strings.Repeat("x", MaxNameLength), "/" + strings.Repeat("x", MaxNameLength), false},
	}
	for _, c := range cases {
		got, err := normalizeName(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("normalizeName(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeName(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("normalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("/qA"); got != "qA" {
		t.Errorf("displayName(/qA) = %q, want qA", got)
	}
}

func TestUniqueNameIsUnique(t *testing.T) {
	a := uniqueName("")
	b := uniqueName("")
	if a == b {
		t.Errorf("uniqueName produced the same value twice: %q", a)
	}
}

func TestRoundCapacity(t *testing.T) {
	if _, err := roundCapacity(0); err == nil {
		t.Error("roundCapacity(0): expected error")
	}
	ps := uint64(pageSize())
	got, err := roundCapacity(1)
	if err != nil {
		t.Fatalf("roundCapacity(1): unexpected error: %v", err)
	}
	if got != ps {
		t.Errorf("roundCapacity(1) = %d, want %d", got, ps)
	}
	got, err = roundCapacity(ps)
	if err != nil {
		t.Fatalf("roundCapacity(page): unexpected error: %v", err)
	}
	if got != ps {
		t.Errorf("roundCapacity(page) = %d, want %d (exact multiple unchanged)", got, ps)
	}
}
