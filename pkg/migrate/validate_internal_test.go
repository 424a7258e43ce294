package migrate

import (
	"strings"
	"testing"
	"time"
)

func TestCheckAnnotations(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"ok", "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 2;\n", ""},
		{"down first", "-- +goose Down\n-- +goose Up\n", "Down section before Up"},
		{"straddle", "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n-- +goose StatementEnd\n", "left open"},
		{"stray end", "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n", "without StatementBegin"},
		{"no down", "-- +goose Up\nSELECT 1;\n", "missing \"-- +goose Down\""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkAnnotations("x.sql", []byte(tc.body))
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateAtRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	path, err := createAt(dir, "Zone Colors", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "20260304050607_zone_colors.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := createAt(dir, "zone colors", now); err == nil {
		t.Fatal("expected duplicate to fail")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("20260105090500"); err != nil || v != 20260105090500 {
		t.Fatalf("got %d, %v", v, err)
	}
	for _, bad := range []string{"", "2026", "2026010509050x"} {
		if _, err := parseVersion(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
