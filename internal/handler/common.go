package handler

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"
)

// getStaffID extracts the staff_id set by the auth middleware and
// normalizes it to uint64.  The JWT library decodes numeric claims as
// float64, so that is the common case; the other branches cover tokens
// minted by older tooling.
func getStaffID(c echo.Context) (uint64, error) {
    v := c.Get("staff_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid staff_id in context")
}
