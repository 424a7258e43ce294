package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

type memIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{data: map[string]string{}}
}

func (m *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.data[key]; taken {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

// idemCall describes one POST through the middleware.
type idemCall struct {
	path    string
	pattern string
	key     string
	body    string
	ctx     func(context.Context) context.Context
}

func (c idemCall) request() *http.Request {
	var body io.Reader = strings.NewReader(c.body)
	req := httptest.NewRequest(http.MethodPost, c.path, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{c.pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if c.ctx != nil {
		ctx = c.ctx(ctx)
	}
	req = req.WithContext(ctx)
	if c.key != "" {
		req.Header.Set(idempotencyHeader, c.key)
	}
	return req
}

func send(mw func(http.Handler) http.Handler, h http.Handler, c idemCall) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, c.request())
	return rec
}

var extractCall = idemCall{path: "/api/v1/deals/extract", pattern: "/api/v1/deals/extract", key: "k-1", body: `{"email":"20 cases ribeye"}`}

func countingHandler(calls *int, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func TestRouteTTLSelection(t *testing.T) {
	cases := map[string]struct {
		method, pattern string
		want            time.Duration
	}{
		"price sheet create":   {http.MethodPost, "/api/v1/price-sheets", defaultIdempotencyTTL},
		"price sheet publish":  {http.MethodPost, "/api/v1/price-sheets/{id}/publish", criticalIdempotencyTTL},
		"concrete deal reject": {http.MethodPost, "/api/v1/deals/123/reject", criticalIdempotencyTTL},
		"deal extract":         {http.MethodPost, "/api/v1/deals/extract", defaultIdempotencyTTL},
		"inventory upload":     {http.MethodPost, "/api/v1/products/upload", defaultIdempotencyTTL},
		"freight quote":        {http.MethodPost, "/api/v1/freight/quote", 0},
		"reads":                {http.MethodGet, "/api/v1/price-sheets", 0},
	}
	for name, tc := range cases {
		ttl, ok := routeTTL(tc.method, tc.pattern)
		if ok != (tc.want > 0) || ttl != tc.want {
			t.Errorf("%s: got (%v, %v), want %v", name, ttl, ok, tc.want)
		}
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var calls int
	call := extractCall
	call.key = ""
	rec := send(Idempotency(newMemIdempotencyStore(), nil), countingHandler(&calls, http.StatusCreated, `{}`), call)
	if rec.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("expected 400 without running handler, got %d after %d calls", rec.Code, calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newMemIdempotencyStore(), nil)
	var calls int
	h := countingHandler(&calls, http.StatusAccepted, `{"ok":true}`)

	first := send(mw, h, extractCall)
	second := send(mw, h, extractCall)

	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
	if first.Code != http.StatusAccepted || second.Code != http.StatusAccepted {
		t.Fatalf("unexpected statuses %d / %d", first.Code, second.Code)
	}
	if second.Header().Get("Content-Type") != "application/json" || second.Body.String() != `{"ok":true}` {
		t.Fatalf("replay lost the stored response: %v %q", second.Header(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" || first.Header().Get("Idempotent-Replayed") != "" {
		t.Fatal("only the replay should carry the replay marker")
	}
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	mw := Idempotency(newMemIdempotencyStore(), nil)
	var calls int
	h := countingHandler(&calls, http.StatusOK, `{}`)
	send(mw, h, extractCall)

	changed := extractCall
	changed.body = `{"email":"40 cases ribeye"}`
	rec := send(mw, h, changed)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, env.Error.Code)
	}
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	mw := Idempotency(newMemIdempotencyStore(), nil)
	var calls int
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	send(mw, h, extractCall)
	rec := send(mw, h, extractCall)
	if calls != 2 || rec.Code != http.StatusCreated {
		t.Fatalf("expected a fresh run after 503, calls=%d status=%d", calls, rec.Code)
	}
}

func TestIdempotencyScopesKeysPerOrganization(t *testing.T) {
	mw := Idempotency(newMemIdempotencyStore(), nil)
	var calls int
	h := countingHandler(&calls, http.StatusCreated, `{}`)

	for _, org := range []string{"org-a", "org-b"} {
		org := org
		send(mw, h, idemCall{
			path: "/api/v1/price-sheets", pattern: "/api/v1/price-sheets", key: "weekly", body: `{"name":"weekly"}`,
			ctx: func(ctx context.Context) context.Context {
				return WithOrgID(WithUserID(ctx, "3f9b2a52-8f7a-4bb8-9d77-3c1f5d9f0a11"), org)
			},
		})
	}
	if calls != 2 {
		t.Fatalf("expected one run per org, got %d", calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	mw := Idempotency(newMemIdempotencyStore(), nil)
	accept := idemCall{path: "/api/v1/deals/d-1/accept", pattern: "/api/v1/deals/{id}/accept", key: "dup", body: `{}`}

	var duplicate *httptest.ResponseRecorder
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		duplicate = send(mw, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("duplicate reached the handler")
		}), accept)
		w.WriteHeader(http.StatusOK)
	})

	if rec := send(mw, h, accept); rec.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", rec.Code)
	}
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate 409, got %d", duplicate.Code)
	}
	if rec := send(mw, h, accept); rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay after completion, headers %v", rec.Header())
	}
}
