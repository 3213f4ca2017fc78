package middleware

// identity.go holds claim and context helpers shared by the auth, rate
// limit and cache middleware.

import (
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// roleFromClaims prefers app_metadata.role, which only the provider's
// service side can set, over the top-level role claim ("authenticated",
// "service_role").
func roleFromClaims(claims jwt.MapClaims) string {
    if md, ok := claims["app_metadata"].(map[string]interface{}); ok {
        if r, ok := md["role"].(string); ok && r != "" {
            return r
        }
    }
    if r, ok := claims["role"].(string); ok {
        return r
    }
    return ""
}

// currentUserID returns the authenticated subject or "anon".
func currentUserID(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
