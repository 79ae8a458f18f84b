package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}, "X-Total": {"3"}}
    body := []byte(`{"items":[]}`)
    payload, err := encodePayload(http.StatusOK, hdr, body)
    if err != nil {
        t.Fatalf("encodePayload: %v", err)
    }
    status, gotHdr, gotBody, ok := decodePayload(payload)
    if !ok {
        t.Fatal("decodePayload rejected a valid payload")
    }
    if status != http.StatusOK {
        t.Fatalf("status = %d, want 200", status)
    }
    if gotHdr.Get("Content-Type") != "application/json" || gotHdr.Get("X-Total") != "3" {
        t.Fatalf("headers = %v", gotHdr)
    }
    if string(gotBody) != string(body) {
        t.Fatalf("body = %q, want %q", gotBody, body)
    }
}

func TestDecodePayloadRejectsTruncated(t *testing.T) {
    for _, bs := range [][]byte{nil, {1, 2, 3}, {0, 0, 0, 200, 0, 0, 0, 99}} {
        if _, _, _, ok := decodePayload(bs); ok {
            t.Fatalf("decodePayload accepted malformed input %v", bs)
        }
    }
}

func TestCacheKeyDependsOnQuery(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query", TTL: time.Minute}
    e := echo.New()
    ctxFor := func(target string) echo.Context {
        req := httptest.NewRequest(http.MethodGet, target, nil)
        c := e.NewContext(req, httptest.NewRecorder())
        c.SetPath("/v1/reviews")
        return c
    }
    a := cacheKeyFrom(cfg, ctxFor("/v1/reviews?page=1"))
    b := cacheKeyFrom(cfg, ctxFor("/v1/reviews?page=2"))
    again := cacheKeyFrom(cfg, ctxFor("/v1/reviews?page=1"))
    if a == b {
        t.Fatal("different queries produced the same cache key")
    }
    if a != again {
        t.Fatal("identical requests produced different cache keys")
    }
}

func TestCaptureWriterHonorsLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    if _, err := cw.Write([]byte("abcdef")); err != nil {
        t.Fatalf("Write: %v", err)
    }
    if got := cw.buf.String(); got != "abcd" {
        t.Fatalf("captured = %q, want %q", got, "abcd")
    }
    // The client still receives the full body.
    if rec.Body.String() != "abcdef" {
        t.Fatalf("forwarded = %q, want full body", rec.Body.String())
    }
}
