package edge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/ratelimit"
	"maritime-edge/pkg/registry"
)

// ==========================
// Test Helpers
// ==========================

type stubFunction struct {
	name     string
	required []string
	execute  func(ctx context.Context, raw []byte) (interface{}, error)
}

func (s *stubFunction) Name() string             { return s.name }
func (s *stubFunction) RequiredFields() []string { return s.required }
func (s *stubFunction) Execute(ctx context.Context, raw []byte) (interface{}, error) {
	return s.execute(ctx, raw)
}

func echoFunction() *stubFunction {
	return &stubFunction{
		name:     "echo",
		required: []string{"a", "b"},
		execute: func(ctx context.Context, raw []byte) (interface{}, error) {
			var in map[string]interface{}
			_ = json.Unmarshal(raw, &in)
			return in, nil
		},
	}
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	} `json:"error"`
	Metadata struct {
		Timestamp string `json:"timestamp"`
		Version   string `json:"version"`
		RequestID string `json:"requestId"`
	} `json:"metadata"`
}

func newTestRouter(t *testing.T, mounts ...Mount) http.Handler {
	t.Helper()
	return newTestRouterWith(t, nil, mounts...)
}

func newTestRouterWith(t *testing.T, opts []RuntimeOption, mounts ...Mount) http.Handler {
	t.Helper()
	rt := NewRuntime(logger.NewTestLogger(t), nil, "9.9.9", 0, opts...)
	catalog := registry.NewCatalog("9.9.9", "")
	for _, m := range mounts {
		catalog.Register(registry.Function{Name: m.Function.Name(), Path: FunctionsPrefix + "/" + m.Function.Name()}, nil)
	}
	return NewRouter(rt, RouterOptions{Mounts: mounts, Catalog: catalog})
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return doFrom(t, h, "192.0.2.1:1234", method, path, body, headers)
}

func doFrom(t *testing.T, h http.Handler, remoteAddr, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

// ==========================
// Pipeline
// ==========================

func TestHandler_Preflight(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction()})

	rec, _ := do(t, h, http.MethodOptions, "/functions/v1/echo", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assertCORS(t, rec)
}

func TestHandler_Success(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction()})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`,
		map[string]string{"X-Request-ID": "req-123"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.EqualValues(t, 1, env.Data["a"])
	assert.Equal(t, "req-123", env.Metadata.RequestID)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "9.9.9", env.Metadata.Version)
	_, err := time.Parse(time.RFC3339, env.Metadata.Timestamp)
	assert.NoError(t, err)
}

func TestHandler_GeneratesRequestID(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction()})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)
	require.NotEmpty(t, env.Metadata.RequestID)
	assert.Equal(t, env.Metadata.RequestID, rec.Header().Get("X-Request-ID"))
}

func TestHandler_ValidationError(t *testing.T) {
	called := false
	fn := echoFunction()
	fn.execute = func(ctx context.Context, raw []byte) (interface{}, error) {
		called = true
		return nil, nil
	}
	h := newTestRouter(t, Mount{Function: fn})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertCORS(t, rec)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, []interface{}{"b"}, env.Error.Details.(map[string]interface{})["missing_fields"])
	assert.False(t, called, "no external work after validation fails")
}

func TestHandler_InvalidJSON(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction()})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", env.Error.Code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction()})

	rec, env := do(t, h, http.MethodGet, "/functions/v1/echo", "", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
	assertCORS(t, rec)
}

func TestHandler_EdgeErrorPassesThrough(t *testing.T) {
	fn := echoFunction()
	fn.execute = func(ctx context.Context, raw []byte) (interface{}, error) {
		return nil, errors.NewUpstreamError(errors.ErrCodeOpenAIAPI, "OpenAI", 500, "upstream exploded")
	}
	h := newTestRouter(t, Mount{Function: fn})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "OPENAI_API_ERROR", env.Error.Code)
	assert.Equal(t, "upstream exploded", env.Error.Details)
}

func TestHandler_UnknownErrorsBecomeInternal(t *testing.T) {
	fn := echoFunction()
	fn.execute = func(ctx context.Context, raw []byte) (interface{}, error) {
		return map[string]string{"partial": "x"}, stderrors.New("nil pointer somewhere")
	}
	h := newTestRouter(t, Mount{Function: fn})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Nil(t, env.Data)
	assert.Nil(t, env.Error.Details)
	assert.NotContains(t, rec.Body.String(), "nil pointer")
}

func TestHandler_PanicRecovered(t *testing.T) {
	fn := echoFunction()
	fn.execute = func(ctx context.Context, raw []byte) (interface{}, error) {
		panic("db password=hunter2 rejected")
	}
	h := newTestRouter(t, Mount{Function: fn})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Nil(t, env.Error.Details)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assertCORS(t, rec)
}

func TestHandler_Timeout(t *testing.T) {
	fn := echoFunction()
	fn.execute = func(ctx context.Context, raw []byte) (interface{}, error) {
		<-ctx.Done()
		return nil, errors.NewDatabaseError("select", ctx.Err())
	}
	h := newTestRouter(t, Mount{Function: fn, Timeout: 20 * time.Millisecond})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "TIMEOUT", env.Error.Code)
}

// ==========================
// Rate limiting
// ==========================

type failingLimiter struct{}

func (failingLimiter) Check(ctx context.Context, id string) (ratelimit.Result, error) {
	return ratelimit.Result{}, stderrors.New("redis down")
}

type recordingLimiter struct {
	ids []string
	ratelimit.Limiter
}

func (r *recordingLimiter) Check(ctx context.Context, id string) (ratelimit.Result, error) {
	r.ids = append(r.ids, id)
	return r.Limiter.Check(ctx, id)
}

func TestHandler_RateLimited(t *testing.T) {
	limiter := &recordingLimiter{Limiter: ratelimit.NewMemoryLimiter(2, time.Minute)}
	h := newTestRouter(t, Mount{Function: echoFunction(), Limiter: limiter})

	for i := 0; i < 2; i++ {
		rec, env := doFrom(t, h, "203.0.113.7:4000", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec, env := doFrom(t, h, "203.0.113.7:4001", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assertCORS(t, rec)

	// A different address has its own window.
	rec, _ = doFrom(t, h, "203.0.113.8:4000", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"echo:ip:203.0.113.7", "echo:ip:203.0.113.7", "echo:ip:203.0.113.7", "echo:ip:203.0.113.8"}, limiter.ids)
}

func TestHandler_RateLimitIgnoresClientSuppliedIdentity(t *testing.T) {
	limiter := &recordingLimiter{Limiter: ratelimit.NewMemoryLimiter(2, time.Minute)}
	h := newTestRouter(t, Mount{Function: echoFunction(), Limiter: limiter})

	// One peer rotating tokens, api keys and forwarded addresses.
	headers := []map[string]string{
		{"Authorization": "Bearer token-1"},
		{"Authorization": "Bearer token-2", "X-Forwarded-For": "198.51.100.1"},
		{"apikey": "key-3", "X-Forwarded-For": "198.51.100.2"},
		{"Authorization": "Bearer token-4", "X-Forwarded-For": "198.51.100.3, 198.51.100.4"},
	}
	codes := make([]int, 0, len(headers))
	for _, hdr := range headers {
		rec, _ := doFrom(t, h, "203.0.113.50:5000", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, hdr)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	for _, id := range limiter.ids {
		assert.Equal(t, "echo:ip:203.0.113.50", id)
	}
}

func TestHandler_RateLimitBehindTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	limiter := &recordingLimiter{Limiter: ratelimit.NewMemoryLimiter(1, time.Minute)}
	h := newTestRouterWith(t, []RuntimeOption{WithTrustedProxies(proxies)}, Mount{Function: echoFunction(), Limiter: limiter})

	rec, _ := doFrom(t, h, "10.0.0.1:443", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`,
		map[string]string{"X-Forwarded-For": "198.51.100.10"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The proxy appends the real client; a forged leftmost hop does not help.
	rec, _ = doFrom(t, h, "10.0.0.1:443", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`,
		map[string]string{"X-Forwarded-For": "192.0.2.99, 198.51.100.10"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = doFrom(t, h, "10.0.0.1:443", http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`,
		map[string]string{"X-Forwarded-For": "198.51.100.20"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"echo:ip:198.51.100.10", "echo:ip:198.51.100.10", "echo:ip:198.51.100.20"}, limiter.ids)
}

func TestHandler_LimiterFailureFailsOpen(t *testing.T) {
	h := newTestRouter(t, Mount{Function: echoFunction(), Limiter: failingLimiter{}})

	rec, env := do(t, h, http.MethodPost, "/functions/v1/echo", `{"a":1,"b":2}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestCallerIdentifier(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		xff     []string
		auth    string
		want    string
	}{
		{"peer only", nil, "203.0.113.9:5123", nil, "", "ip:203.0.113.9"},
		{"credentials ignored", nil, "203.0.113.9:5123", nil, "Bearer jwt", "ip:203.0.113.9"},
		{"untrusted peer ignores forwarded", nil, "203.0.113.9:5123", []string{"198.51.100.1"}, "", "ip:203.0.113.9"},
		{"trusted peer uses forwarded", proxies, "10.1.2.3:443", []string{"198.51.100.1"}, "", "ip:198.51.100.1"},
		{"skips trusted hops", proxies, "10.1.2.3:443", []string{"198.51.100.1, 10.9.9.9, 192.168.1.1"}, "", "ip:198.51.100.1"},
		{"rightmost untrusted hop wins", proxies, "10.1.2.3:443", []string{"192.0.2.66, 198.51.100.1"}, "", "ip:198.51.100.1"},
		{"multiple headers joined", proxies, "10.1.2.3:443", []string{"192.0.2.66", "198.51.100.1"}, "", "ip:198.51.100.1"},
		{"garbage hop stops walk", proxies, "10.1.2.3:443", []string{"198.51.100.1, not-an-ip, 10.4.4.4"}, "", "ip:10.4.4.4"},
		{"trusted peer without header", proxies, "10.1.2.3:443", nil, "", "ip:10.1.2.3"},
		{"ipv6 peer", nil, "[2001:db8::1]:443", nil, "", "ip:2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			assert.Equal(t, tt.want, tt.proxies.CallerIdentifier(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "127.0.0.1", "::1"})
	require.NoError(t, err)
	require.Len(t, tp, 3)
	assert.Equal(t, "10.0.0.0/8", tp[0].String())
	assert.Equal(t, "127.0.0.1/32", tp[1].String())
	assert.Equal(t, "::1/128", tp[2].String())

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.ErrorContains(t, err, "invalid trusted proxy")
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.ErrorContains(t, err, "invalid trusted proxy")
}

// ==========================
// Operational routes
// ==========================

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestRouter_OperationalEndpoints(t *testing.T) {
	rt := NewRuntime(logger.NewNoOpLogger(), nil, "1.0.0", 0)
	catalog := registry.NewCatalog("1.0.0", "")
	catalog.Register(registry.Function{Name: "echo"}, nil)

	h := NewRouter(rt, RouterOptions{
		Mounts:  []Mount{{Function: echoFunction()}},
		Catalog: catalog,
		Checks:  map[string]Pinger{"postgres": stubPinger{}},
	})

	rec, env := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", env.Data["status"])

	rec, env = do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", env.Data["status"])

	rec, env = do(t, h, http.MethodGet, "/functions", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data["functions"], 1)

	rec, env = do(t, h, http.MethodPost, "/functions/v1/missing", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
}

func TestRouter_NotReady(t *testing.T) {
	rt := NewRuntime(logger.NewNoOpLogger(), nil, "1.0.0", 0)
	h := NewRouter(rt, RouterOptions{Checks: map[string]Pinger{"redis": stubPinger{err: stderrors.New("refused")}}})

	rec, env := do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", env.Error.Code)
}
