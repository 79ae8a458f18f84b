package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/config"
    "github.com/iliyamo/consultation-booking/internal/utils"
)

const testSecret = "middleware-test-secret"

func newContext(t *testing.T, header string) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    if header != "" {
        req.Header.Set("Authorization", header)
    }
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
    return c.NoContent(http.StatusOK)
}

func TestJWTAuthMissingHeader(t *testing.T) {
    c, rec := newContext(t, "")
    h := JWTAuth(testSecret)(okHandler)
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}

func TestJWTAuthRejectsGarbage(t *testing.T) {
    c, rec := newContext(t, "Bearer not-a-token")
    h := JWTAuth(testSecret)(okHandler)
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken("another-secret", 7, "user", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    c, rec := newContext(t, "Bearer "+tok.Token)
    h := JWTAuth(testSecret)(okHandler)
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}

func TestJWTAuthInjectsClaims(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 42, "consultant", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    c, rec := newContext(t, "Bearer "+tok.Token)
    var gotRole string
    var gotSub interface{}
    h := JWTAuth(testSecret)(func(c echo.Context) error {
        gotSub = c.Get("user_id")
        gotRole, _ = c.Get("role").(string)
        return c.NoContent(http.StatusOK)
    })
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, want 200", rec.Code)
    }
    if gotRole != "consultant" {
        t.Fatalf("role = %q, want consultant", gotRole)
    }
    // Numeric JSON claims decode as float64.
    if f, ok := gotSub.(float64); !ok || uint64(f) != 42 {
        t.Fatalf("user_id = %#v, want 42", gotSub)
    }
}

func TestRequireRole(t *testing.T) {
    cases := []struct {
        name    string
        role    interface{}
        allowed []string
        want    int
    }{
        {"allowed", "admin", []string{"admin"}, http.StatusOK},
        {"one of several", "consultant", []string{"user", "consultant"}, http.StatusOK},
        {"denied", "user", []string{"admin"}, http.StatusForbidden},
        {"missing", nil, []string{"admin"}, http.StatusForbidden},
        {"non-string", 42, []string{"admin"}, http.StatusForbidden},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := newContext(t, "")
            if tc.role != nil {
                c.Set("role", tc.role)
            }
            h := RequireRole(tc.allowed...)(okHandler)
            if err := h(c); err != nil {
                t.Fatalf("handler error: %v", err)
            }
            if rec.Code != tc.want {
                t.Fatalf("status = %d, want %d", rec.Code, tc.want)
            }
        })
    }
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: false}
    c, rec := newContext(t, "")
    h := NewTokenBucket(cfg, nil)(okHandler)
    if err := h(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, want 200", rec.Code)
    }
}

func TestBuildRateKeyStrategies(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl"}
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/consultants/3/slots", nil)
    req.Header.Set("X-Real-IP", "10.0.0.9")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/consultants/:id/slots")
    c.Set("user_id", float64(42))

    cases := map[string]string{
        "ip":    "rl:ip:10.0.0.9",
        "user":  "rl:user:42",
        "route": "rl:route:POST /v1/consultants/:id/slots",
    }
    for strategy, want := range cases {
        cfg.KeyStrategy = strategy
        if got := buildRateKey(cfg, c); got != want {
            t.Fatalf("buildRateKey(%s) = %q, want %q", strategy, got, want)
        }
    }
}

func TestCurrentUserIDFallsBackToAnon(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    if got := currentUserID(c); got != "anon" {
        t.Fatalf("currentUserID = %q, want anon", got)
    }
    c.Set("user_id", uint64(7))
    if got := currentUserID(c); got != "7" {
        t.Fatalf("currentUserID = %q, want 7", got)
    }
}
