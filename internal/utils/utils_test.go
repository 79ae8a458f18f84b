package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestPasswordHashRoundTrip(t *testing.T) {
    hash, err := HashPassword("s3cret-pass", 4)
    if err != nil {
        t.Fatalf("HashPassword: %v", err)
    }
    if hash == "s3cret-pass" {
        t.Fatal("password stored in plain text")
    }
    if !VerifyPassword(hash, "s3cret-pass") {
        t.Fatal("correct password rejected")
    }
    if VerifyPassword(hash, "wrong-pass") {
        t.Fatal("wrong password accepted")
    }
}

func TestNewAccessTokenClaims(t *testing.T) {
    at, err := NewAccessToken("secret", 42, "consultant", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    tok, err := jwt.Parse(at.Token, func(t *jwt.Token) (interface{}, error) {
        return []byte("secret"), nil
    })
    if err != nil || !tok.Valid {
        t.Fatalf("issued token does not parse: %v", err)
    }
    claims := tok.Claims.(jwt.MapClaims)
    if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
        t.Fatalf("sub = %v, want 42", claims["sub"])
    }
    if claims["role"] != "consultant" {
        t.Fatalf("role = %v, want consultant", claims["role"])
    }
    if time.Until(at.Exp) > 15*time.Minute || time.Until(at.Exp) <= 0 {
        t.Fatalf("expiry out of range: %v", at.Exp)
    }
}

func TestRefreshTokenHashing(t *testing.T) {
    rt, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    if len(rt.Raw) != 96 {
        t.Fatalf("raw token length = %d, want 96 hex chars", len(rt.Raw))
    }
    h1 := HashRefreshRaw(rt.Raw)
    h2 := HashRefreshRaw(rt.Raw)
    if h1 != h2 {
        t.Fatal("hashing the same token twice differs")
    }
    if h1 == rt.Raw {
        t.Fatal("hash equals the raw token")
    }

    other, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    if other.Raw == rt.Raw {
        t.Fatal("two generated tokens are identical")
    }
}
