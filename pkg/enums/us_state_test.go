package enums

import "testing"

func TestIsUSState(t *testing.T) {
	for _, code := range []string{"TX", " fl ", "dc"} {
		if !IsUSState(code) {
			t.Fatalf("expected %q to be a state", code)
		}
	}
	for _, code := range []string{"", "PR", "Texas", "ZZ"} {
		if IsUSState(code) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
	if NormalizeUSState(" ga") != "GA" {
		t.Fatal("normalize should trim and uppercase")
	}
}
