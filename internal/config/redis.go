package config

// Redis backs two concerns here: the API rate limiter and the pub/sub
// channel that fans live waitlist updates out to websocket subscribers.
// Both degrade gracefully when Redis is unreachable, so a failed
// connection at startup yields a nil client instead of an error.

import (
    "context"
    "net"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from environment variables:
//   REDIS_ADDR – host:port shorthand
//   REDIS_HOST and REDIS_PORT – discrete form; takes precedence over REDIS_ADDR
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
// The returned client is nil if a connection cannot be established;
// callers run without rate limiting and live updates in that case.
func NewRedisClient() *redis.Client {
    addr := envStr("REDIS_ADDR", "")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    if addr == "" {
        addr = "localhost:6379"
    }

    client := redis.NewClient(&redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
