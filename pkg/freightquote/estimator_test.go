package freightquote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/frostline/frostline-backend/pkg/config"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

func sampleRequest() Request {
	return Request{OriginZip: "90021", OriginState: "CA", DestinationZip: "85004", DestinationState: "AZ", WeightLbs: 2000}
}

func TestStaticQuote(t *testing.T) {
	s := NewStatic()

	q, err := s.Quote(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 95 + 2000*0.11 + 2000*0.04
	if q.Amount != 395 {
		t.Fatalf("expected 395, got %v", q.Amount)
	}
	if q.Provider != "static" || q.TransitDays != 4 {
		t.Fatalf("unexpected quote %+v", q)
	}

	small := sampleRequest()
	small.WeightLbs = 40
	small.DestinationState = "CA"
	q, err = s.Quote(context.Background(), small)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Amount != 175 {
		t.Fatalf("expected minimum 175, got %v", q.Amount)
	}
}

func TestRequestValidate(t *testing.T) {
	req := sampleRequest()
	req.WeightLbs = 0
	if err := req.Validate(); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	req = sampleRequest()
	req.DestinationZip = ""
	if err := req.Validate(); err == nil {
		t.Fatal("expected error for missing zip")
	}
}

func TestHTTPProviderQuote(t *testing.T) {
	var auth string
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		if req.URL.String() != "http://freight.test/quotes" {
			t.Fatalf("unexpected url %s", req.URL)
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"amount":412.5,"carrier":"ODFL","transit_days":3}`)),
			Header:     http.Header{},
		}, nil
	})

	p, err := NewHTTPProvider("http://freight.test/", "k1", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	q, err := p.Quote(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if auth != "Bearer k1" {
		t.Fatalf("unexpected auth %q", auth)
	}
	if payload["weight_lbs"] != float64(2000) {
		t.Fatalf("unexpected payload %v", payload)
	}
	if q.Amount != 412.5 || q.Carrier != "ODFL" || q.Provider != "http" {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestHTTPProviderFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("upstream")), Header: http.Header{}}, nil
	})
	p, _ := NewHTTPProvider("http://freight.test", "", WithHTTPClient(&http.Client{Transport: rt}))
	_, err := p.Quote(context.Background(), sampleRequest())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewByName(t *testing.T) {
	est, err := NewByName(config.FreightQuoteConfig{})
	if err != nil || est.Name() != "static" {
		t.Fatalf("expected static default, got %v %v", est, err)
	}
	est, err = NewByName(config.FreightQuoteConfig{Provider: "HTTP", BaseURL: "http://freight.test"})
	if err != nil || est.Name() != "http" {
		t.Fatalf("expected http provider, got %v %v", est, err)
	}
	if _, err := NewByName(config.FreightQuoteConfig{Provider: "http"}); err == nil {
		t.Fatal("expected error without base url")
	}
	if _, err := NewByName(config.FreightQuoteConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
