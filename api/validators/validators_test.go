package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

type quoteBody struct {
	WeightLbs float64 `json:"weight_lbs" validate:"gt=0"`
	State     string  `json:"destination_state" validate:"required,len=2"`
}

func TestDecodeJSONBodyValidatesFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"weight_lbs":0,"destination_state":"Texas"}`))
	var body quoteBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["weight_lbs"] != "must be greater than 0" {
		t.Fatalf("unexpected weight message %q", details["weight_lbs"])
	}
	if details["destination_state"] != "must be exactly 2 characters" {
		t.Fatalf("unexpected state message %q", details["destination_state"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"weight_lbs":10,"destination_state":"TX","extra":1}`))
	var body quoteBody
	if err := DecodeJSONBody(req, &body); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body quoteBody
	err := DecodeJSONBody(req, &body)
	if err == nil || pkgerrors.As(err).Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := QueryInt(req, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := QueryInt(req, "limit", 25, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d %v", got, err)
	}
}

func TestSanitizeStringCountsRunes(t *testing.T) {
	if got := SanitizeString("  jalapeño bites  ", 8); got != "jalapeño" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" ok ", 0); got != "ok" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("12 x\t\t1 lb\x00 IQF\n", 0); got != "12 x 1 lb IQF" {
		t.Fatalf("unexpected %q", got)
	}
}

type warehouseBody struct {
	State string `json:"state" validate:"required,usstate"`
}

func TestUSStateTag(t *testing.T) {
	for body, ok := range map[string]bool{
		`{"state":"tx"}`: true,
		`{"state":"DC"}`: true,
		`{"state":"ZZ"}`: false,
		`{"state":"PR"}`: false,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dest warehouseBody
		err := DecodeJSONBody(req, &dest)
		if ok && err != nil {
			t.Fatalf("%s: unexpected error %v", body, err)
		}
		if !ok {
			details, _ := pkgerrors.As(err).Details().(map[string]string)
			if details["state"] != "must be a two-letter US state code" {
				t.Fatalf("%s: unexpected details %v", body, details)
			}
		}
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	big := `{"state":"` + strings.Repeat("x", MaxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var dest warehouseBody
	err := DecodeJSONBody(req, &dest)
	if err == nil || pkgerrors.As(err).Message() != "request body too large" {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?warehouse_id=nope&include_inactive=yes&q=%20ribeye%20", nil)
	if _, err := QueryUUID(req, "warehouse_id"); err == nil {
		t.Fatal("expected invalid uuid error")
	}
	if id, err := QueryUUID(req, "zone_id"); err != nil || id != nil {
		t.Fatalf("absent uuid should be nil, got %v %v", id, err)
	}
	if !QueryBool(req, "include_inactive") || QueryBool(req, "missing") {
		t.Fatal("unexpected bool parsing")
	}
	if got := QueryString(req, "q", 3); got != "rib" {
		t.Fatalf("expected capped query, got %q", got)
	}
}
