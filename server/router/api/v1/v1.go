// Package v1 exposes the REST surface over the room and user services.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/blubb/internal/profile"
	"github.com/hrygo/blubb/internal/observability"
	"github.com/hrygo/blubb/server/middleware"
	"github.com/hrygo/blubb/server/service/room"
	"github.com/hrygo/blubb/server/service/user"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store
	Cache   cache.Cache

	RoomService room.Service
	UserService user.Service
}

func NewAPIV1Service(secret string, profile *profile.Profile, st *store.Store, c cache.Cache) *APIV1Service {
	return &APIV1Service{
		Secret:      secret,
		Profile:     profile,
		Store:       st,
		Cache:       c,
		RoomService: room.NewService(st, c, room.ConfigFromProfile(profile)),
		UserService: user.NewService(st, c, user.TTLFromProfile(profile)),
	}
}

// Register mounts the API routes on the given Echo instance. Everything under
// /api/v1 requires a valid access token and is rate limited per caller.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)
	echoServer.GET("/metrics/cache", s.CacheMetrics)

	rateLimiter := middleware.NewRateLimiter(10, 20)

	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(echomiddleware.CORS())
	apiGroup.Use(s.JWTAuthMiddleware)
	apiGroup.Use(rateLimiter.Middleware(func(c echo.Context) string {
		userID, ok := currentUserID(c)
		if !ok {
			return ""
		}
		return strconv.FormatInt(int64(userID), 10)
	}))

	apiGroup.GET("/rooms", s.ListRooms)
	apiGroup.POST("/rooms", s.CreateRoom)
	apiGroup.GET("/rooms/:roomID", s.GetRoom)
	apiGroup.GET("/rooms/:roomID/participants", s.ListRoomParticipants)
	apiGroup.POST("/rooms/:roomID/join", s.JoinRoom)
	apiGroup.DELETE("/rooms/:roomID/leave", s.LeaveRoom)
	apiGroup.POST("/cache/warmup", s.WarmupCache)

	apiGroup.GET("/user", s.GetUser)
	apiGroup.GET("/user/:userID", s.GetUserByID)
	apiGroup.PATCH("/user", s.UpdateUser)
}

// Healthz reports process liveness. The cache is probed but a degraded cache
// does not fail the check; the service runs store-only without it.
func (s *APIV1Service) Healthz(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{"status": "ok", "cache": "ok"}
	if _, _, err := s.Cache.Get(ctx, "healthz"); err != nil {
		status["cache"] = "degraded"
	}
	return c.JSON(http.StatusOK, status)
}

// CacheMetrics reports the in-process cache counters.
func (s *APIV1Service) CacheMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, observability.GlobalCacheMetrics().Snapshot())
}
