// Package router wires handlers and middleware onto an echo instance.
package router

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/config"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/handler"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/middleware"
)

// Admin bundles everything mounted under /v1/admin.
type Admin struct {
    JWTSecret string
    Roles     []string
    RateLimit config.RateLimitConfig
    Cache     config.CacheConfig
    Redis     *redis.Client

    Users    *handler.AdminUserHandler
    Projects *handler.ProjectHandler
    Activity *handler.ActivityHandler
}

// New returns an echo instance with request ids, access logging and panic
// recovery installed.
func New() *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())
    return e
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAdmin mounts the admin API.  Every route requires a valid access
// token carrying one of a.Roles and passes the token bucket.  Only the
// registry listing is cached: user listings must always reflect the apps.
func RegisterAdmin(e *echo.Echo, a Admin) {
    g := e.Group("/v1/admin")
    g.Use(middleware.JWTAuth(a.JWTSecret))
    g.Use(middleware.RequireRole(a.Roles...))
    g.Use(middleware.NewTokenBucket(a.RateLimit, a.Redis))

    g.GET("/users", a.Users.ListUsers)
    g.PATCH("/users", a.Users.UpdateUser)
    g.GET("/projects", a.Projects.ListProjects, middleware.NewRedisCache(a.Cache, a.Redis))
    g.GET("/activity", a.Activity.ListActivity)
}
