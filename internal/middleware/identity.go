package middleware

// identity.go holds helpers shared across middleware files. currentUserID
// renders the authenticated user id for rate-limit keys; JWT numeric
// claims decode as float64, so both forms are handled.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the context's user id as a string, or "anon" for
// unauthenticated requests.
func currentUserID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    }
    return "anon"
}
