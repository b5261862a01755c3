package util

import "testing"

func TestHashSessionKey(t *testing.T) {
	id := "2d7c3a2e-1b1f-4c1e-9a55-6c2f0f7d8e11"
	got := HashSessionKey(id)
	if got != HashSessionKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	if got == HashSessionKey("other") {
		t.Fatalf("expected distinct sessions to hash differently")
	}
}
