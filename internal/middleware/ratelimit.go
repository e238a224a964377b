package middleware

import (
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/hellocng/deepstack/internal/config"
)

// Refill bookkeeping and the take are one atomic script so two tablets
// hammering the same bucket cannot both spend the last token.
//
// Returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_s = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'stamp_ms')
    local tokens = tonumber(state[1])
    local stamp = tonumber(state[2])
    if tokens == nil or stamp == nil then
        tokens = capacity
        stamp = now_ms
    end

    local ticks = math.floor(math.max(0, now_ms - stamp) / interval_ms)
    if ticks > 0 then
        tokens = math.min(capacity, tokens + ticks * refill)
        stamp = stamp + ticks * interval_ms
    end

    local allowed = 0
    local retry_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_ms = math.max(0, interval_ms - (now_ms - stamp))
    end

    redis.call('HSET', key, 'tokens', tokens, 'stamp_ms', stamp)
    redis.call('EXPIRE', key, ttl_s)
    return { allowed, tokens, retry_ms }
`)

// NewTokenBucket builds the rate limiter for the staff API.  With rate
// limiting disabled or Redis unavailable it degrades to a pass-through,
// and any Redis error at request time fails open; limiter trouble must
// never block seating operations.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg.Prefix, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                return next(c)
            }
            arr, ok := vals.([]interface{})
            if !ok || len(arr) != 3 {
                return next(c)
            }
            allowed := toInt64(arr[0]) == 1
            remaining := toInt64(arr[1])
            retryMs := toInt64(arr[2])

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// rateKey buckets per staff member and route.  Every limited route sits
// behind JWTAuth, so the staff id is present; "anon" only appears if the
// limiter is ever mounted ahead of auth.
func rateKey(prefix string, c echo.Context) string {
    return prefix + ":staff:" + currentStaffID(c) + ":" + c.Request().Method + " " + c.Path()
}

func toInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

// currentStaffID renders the staff_id context value set by JWTAuth into a
// key fragment.  The JWT library decodes numeric claims as float64.
func currentStaffID(c echo.Context) string {
    switch v := c.Get("staff_id").(type) {
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case string:
        if v != "" { return v }
    }
    return "anon"
}
