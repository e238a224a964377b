package middleware // middleware contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and role claims into the request
// context.  The provided secret must match the one used when issuing
// tokens at login.  Handlers behind this middleware read the acting staff
// member via `c.Get("staff_id")` and `c.Get("role")`; the staff id feeds
// the assigned_by and cancelled_by audit fields.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            raw, found := strings.CutPrefix(auth, "Bearer ")
            if !found || raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            claims, err := parseStaffClaims(raw, secret)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Numeric subjects decode as float64; normalization is left
            // to the consumers.
            c.Set("staff_id", claims["sub"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}

// parseStaffClaims checks signature and expiry and returns the claim map.
// Only HS256 is accepted; tokens signed with any other method fail
// regardless of key.
func parseStaffClaims(raw, secret string) (jwt.MapClaims, error) {
    claims := jwt.MapClaims{}
    _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil {
        return nil, err
    }
    return claims, nil
}
