// Package server assembles the HTTP server over the store, cache, and
// services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/blubb/internal/profile"
	apiv1 "github.com/hrygo/blubb/server/router/api/v1"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
)

type Server struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store
	Cache   cache.Cache

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, c cache.Cache) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())

	s := &Server{
		Secret:     profile.Secret,
		Profile:    profile,
		Store:      st,
		Cache:      c,
		echoServer: echoServer,
	}

	s.apiService = apiv1.NewAPIV1Service(s.Secret, profile, st, c)
	s.apiService.Register(echoServer)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Cache.Close(); err != nil {
		slog.Error("failed to close cache", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
