package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/aggregator"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/logger"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/middleware"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/queue"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/repository"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/writeback"
)

// SkippedProjectsHeader lists, comma separated, the apps left out of a
// user listing.
const SkippedProjectsHeader = "X-Skipped-Projects"

const publishTimeout = 5 * time.Second

type UserLister interface {
    AllUsers(ctx context.Context) (aggregator.Result, error)
}

type UserWriter interface {
    Update(ctx context.Context, req writeback.Request) (writeback.Result, error)
}

type EventPublisher interface {
    PublishUserUpdated(ctx context.Context, ev queue.UserUpdatedEvent) error
}

// AdminUserHandler serves the cross-app user listing and the single-user
// edit.  Events may be nil when activity events are disabled.
type AdminUserHandler struct {
    Users  UserLister
    Writer UserWriter
    Events EventPublisher
    Log    logger.Logger

    // published is signalled after every publish attempt; tests use it.
    published chan struct{}
}

// NewAdminUserHandler panics on a missing lister or writer.
func NewAdminUserHandler(users UserLister, writer UserWriter, events EventPublisher, log logger.Logger) *AdminUserHandler {
    if users == nil || writer == nil {
        panic("nil dependency passed to NewAdminUserHandler")
    }
    if log == nil {
        log = logger.Nop()
    }
    return &AdminUserHandler{Users: users, Writer: writer, Events: events, Log: log}
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminUserHandler) ListUsers(c echo.Context) error {
    res, err := h.Users.AllUsers(c.Request().Context())
    if err != nil {
        h.Log.Error("list users failed", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
    }
    if len(res.Skipped) > 0 {
        apps := make([]string, 0, len(res.Skipped))
        for _, s := range res.Skipped {
            apps = append(apps, s.App)
        }
        c.Response().Header().Set(SkippedProjectsHeader, strings.Join(apps, ","))
    }
    return c.JSON(http.StatusOK, res.Users)
}

// UpdateUser handles PATCH /v1/admin/users with body {userId, app, fields}.
func (h *AdminUserHandler) UpdateUser(c echo.Context) error {
    var req writeback.Request
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    res, err := h.Writer.Update(c.Request().Context(), req)
    if err != nil {
        status := updateStatus(err)
        if status == http.StatusInternalServerError {
            h.Log.Error("user update failed", err, "app", req.App, "user_id", req.UserID)
        }
        return c.JSON(status, echo.Map{"error": err.Error()})
    }

    h.Log.Info("user updated", "app", res.App, "user_id", res.UserID, "table", res.Table, "editor", c.Get(middleware.CtxUserID))
    if h.Events != nil {
        go h.publish(queue.UserUpdatedEvent{
            App:       res.App,
            UserID:    res.UserID,
            Table:     res.Table,
            IsLocal:   res.IsLocal,
            Fields:    res.Payload,
            UpdatedAt: time.Now().UTC(),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "updated": res.Payload})
}

func (h *AdminUserHandler) publish(ev queue.UserUpdatedEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
    defer cancel()
    if err := h.Events.PublishUserUpdated(ctx, ev); err != nil {
        h.Log.Warn("user updated event dropped", "app", ev.App, "user_id", ev.UserID, "reason", err.Error())
    }
    if h.published != nil {
        h.published <- struct{}{}
    }
}

func updateStatus(err error) int {
    switch {
    case errors.Is(err, writeback.ErrInvalidRequest), errors.Is(err, writeback.ErrNoValidFields),
        errors.Is(err, repository.ErrInvalidIdentifier):
        return http.StatusBadRequest
    case errors.Is(err, writeback.ErrAppNotFound), errors.Is(err, repository.ErrUserNotFound):
        return http.StatusNotFound
    default:
        return http.StatusInternalServerError
    }
}
