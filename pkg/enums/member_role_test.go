package enums

import "testing"

func TestMemberRoles(t *testing.T) {
	cases := []struct {
		raw      string
		valid    bool
		canWrite bool
	}{
		{"admin", true, true},
		{"sales", true, true},
		{"viewer", true, false},
		{"Admin", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		role, err := ParseMemberRole(tc.raw)
		if tc.valid != (err == nil) {
			t.Fatalf("%q: parse err = %v", tc.raw, err)
		}
		if MemberRole(tc.raw).IsValid() != tc.valid {
			t.Fatalf("%q: IsValid mismatch", tc.raw)
		}
		if tc.valid && role.CanWrite() != tc.canWrite {
			t.Fatalf("%q: CanWrite = %v", tc.raw, role.CanWrite())
		}
	}
}
