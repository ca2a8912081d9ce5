package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "good", nil }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "good" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{RegisteredClaims: libJWT.RegisteredClaims{Subject: "7"}, UserID: 7}, nil
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type created struct {
	ID string `json:"id"`
}

func (created) StatusCode() int       { return http.StatusCreated }
func (created) Message() string       { return "created" }
func (created) Meta() map[string]any { return map[string]any{"limit": 1} }

func newTestRouter(t *testing.T, yaml string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	return NewRouter(Config{
		Config:     cfg,
		UUID:       fixedID("generated-cid"),
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
	})
}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestRouter_Authentication(t *testing.T) {
	r := newTestRouter(t, "app:\n  name: test\n")
	r.GET("/open", func(*Request) (any, error) { return created{ID: "1"}, nil }, Public())
	r.GET("/closed", func(req *Request) (any, error) {
		claims := jwt.GetAuth(req.Context())
		require.NotNil(t, claims)
		return created{ID: claims.Subject}, nil
	})

	rec, body := serve(r, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"limit": float64(1)}, body["meta"])

	rec, body = serve(r, httptest.NewRequest(http.MethodGet, "/closed", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", body["message"])
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec, body = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["message"])

	req = httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "bearer good")
	rec, body = serve(r, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]any{"id": "7"}, body["data"])
}

func TestRouter_Errors(t *testing.T) {
	r := newTestRouter(t, "app:\n  name: test\n")
	r.POST("/cooldown", func(*Request) (any, error) {
		return nil, goerror.NewBusinessWrap(errors.New("cooldown"), "Please wait", goerror.CodeTooManyRequest, FieldRetryAfter, "42")
	}, Public())
	r.POST("/boom", func(*Request) (any, error) { return nil, errors.New("db down") }, Public())
	r.POST("/panic", func(*Request) (any, error) { panic("bad") }, Public())
	r.POST("/empty", func(*Request) (any, error) { return nil, nil }, Public())

	rec, body := serve(r, httptest.NewRequest(http.MethodPost, "/cooldown", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Equal(t, map[string]any{FieldRetryAfter: "42"}, body["error"])

	rec, body = serve(r, httptest.NewRequest(http.MethodPost, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["message"])

	rec, _ = serve(r, httptest.NewRequest(http.MethodPost, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = serve(r, httptest.NewRequest(http.MethodPost, "/empty", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", body["message"])

	rec, _ = serve(r, httptest.NewRequest(http.MethodGet, "/cooldown", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Maintenance(t *testing.T) {
	r := newTestRouter(t, `
app:
  maintenance:
    endpoints: "POST /code, /verify"
    retry_after_seconds: 120
`)
	ok := func(*Request) (any, error) { return created{}, nil }
	r.POST("/code", ok, Public())
	r.GET("/code", ok, Public())
	r.POST("/verify", ok, Public())

	rec, body := serve(r, httptest.NewRequest(http.MethodPost, "/code", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))
	assert.Equal(t, "service is under maintenance", body["message"])

	rec, _ = serve(r, httptest.NewRequest(http.MethodGet, "/code", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = serve(r, httptest.NewRequest(http.MethodPost, "/verify", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CorrelationAndClientIP(t *testing.T) {
	r := newTestRouter(t, "app:\n  name: test\n")
	var gotCID, gotIP string
	r.GET("/who", func(req *Request) (any, error) {
		gotCID = instrument.GetCorrelationID(req.Context())
		gotIP = ClientIP(req.Context())
		return created{}, nil
	}, Public())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(HeaderRequestID, "from-proxy")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec, _ := serve(r, req)
	assert.Equal(t, "from-proxy", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "from-proxy", gotCID)
	assert.Equal(t, "203.0.113.9", gotIP)

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(HeaderCorrelationID, "bad id")
	req.Header.Set("X-Real-IP", "not-an-ip")
	req.RemoteAddr = "[::ffff:192.0.2.1]:5555"
	rec, _ = serve(r, req)
	assert.Equal(t, "generated-cid", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "192.0.2.1", gotIP)
}

func TestCleanCorrelationID(t *testing.T) {
	assert.Equal(t, "abc-123", cleanCorrelationID("  abc-123 "))
	assert.Empty(t, cleanCorrelationID("a\r\nb"))
	assert.Len(t, cleanCorrelationID(strings.Repeat("x", 300)), maxCorrelationIDLen)
}

func TestRequest_DecodeBody(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{name: "Valid", contentType: "application/json; charset=utf-8", body: `{"email":"a@b.co"}`},
		{name: "NoContentType", body: `{"email":"a@b.co"}`},
		{name: "UnknownField", contentType: "application/json", body: `{"mail":"a@b.co"}`, wantErr: true},
		{name: "Trailing", contentType: "application/json", body: `{"email":"a@b.co"}{}`, wantErr: true},
		{name: "WrongType", contentType: "text/plain", body: `{"email":"a@b.co"}`, wantErr: true},
		{name: "TooLarge", contentType: "application/json", body: `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, wantErr: true},
		{name: "Empty", contentType: "application/json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.body == "" {
				req.Body = http.NoBody
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			var got payload
			err := (&Request{Request: req}).DecodeBody(&got)
			if tt.wantErr {
				var gerr *goerror.Error
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, goerror.CodeInvalidFormat, gerr.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.co", got.Email)
		})
	}
}

func TestRequest_QueryInt32(t *testing.T) {
	req := &Request{Request: httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x", nil)}

	n, err := req.QueryInt32("limit")
	require.NoError(t, err)
	assert.Equal(t, int32(5), n)

	n, err = req.QueryInt32("missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = req.QueryInt32("bad")
	assert.Error(t, err)
}

func TestLoggable(t *testing.T) {
	assert.Nil(t, loggable(nil, false))
	assert.Equal(t, map[string]any{"code": "123456"}, loggable([]byte(`{"code":"123456"}`), false))
	assert.Equal(t, "plain", loggable([]byte("plain"), false))
	assert.Equal(t, `{"a":...(truncated)`, loggable([]byte(`{"a":`), true))
	assert.Equal(t, "<binary body omitted>", loggable([]byte{0xff, 0xfe}, false))
}
