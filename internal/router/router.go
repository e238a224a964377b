package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/hellocng/deepstack/internal/handler"
	"github.com/hellocng/deepstack/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check for load balancers and
// monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the staff login endpoint and the protected /me
// probe.  Login lives under /v1/auth without middleware; /me sits behind
// the same JWT and role checks as the rest of the staff API so clients
// can verify a token end to end.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/login", a.Login)

	auth := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("FLOOR", "ADMIN"),
	)
	auth.GET("/me", a.Me)
}

// RegisterWaitlist registers the queue endpoints: game and room views,
// join, reorder, rebalance, status transitions, the per-room sweeper
// switch and the live websocket feed.  Everything requires staff auth;
// limiter is the rate limit middleware (pass-through when disabled).
func RegisterWaitlist(e *echo.Echo, w *handler.WaitlistHandler, sw *handler.SweeperHandler, lv *handler.LiveHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("FLOOR", "ADMIN"),
		limiter,
	)

	// ---- Per-game queue ----
	g.GET("/games/:id/waitlist", w.GameWaitlist)
	g.POST("/games/:id/waitlist", w.Join)
	g.POST("/games/:id/waitlist/rebalance", w.Rebalance)

	// ---- Entries ----
	g.POST("/waitlist/entries/:id/move", w.Move)
	g.POST("/waitlist/entries/:id/status", w.UpdateStatus)

	// ---- Room-wide board ----
	g.GET("/rooms", w.ListRooms)
	g.GET("/rooms/:id/waitlist", w.RoomWaitlist)
	g.GET("/rooms/:id/waitlist/live", lv.Serve)

	// ---- Expiry sweep ----
	g.POST("/rooms/:id/waitlist/sweeper", sw.Arm)
	g.DELETE("/rooms/:id/waitlist/sweeper", sw.Disarm)
}

// RegisterSeating registers the seat coordinator endpoints.
func RegisterSeating(e *echo.Echo, s *handler.SeatingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("FLOOR", "ADMIN"),
		limiter,
	)

	// ---- Tables ----
	g.GET("/tables/:id/seats", s.AvailableSeats)
	g.GET("/tables/:id/occupancy", s.Occupancy)
	g.POST("/tables/:id/assign", s.Assign)

	// ---- Player sessions ----
	g.POST("/seating/sessions/:id/end", s.EndSession)

	// ---- Per-game assignment ----
	g.GET("/games/:id/next-seat", s.NextSeat)
	g.POST("/games/:id/auto-assign", s.AutoAssign)
}
