package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

const (
    defaultActivityLimit = 50
    maxActivityLimit     = 200
)

type ActivityLister interface {
    ListRecent(ctx context.Context, limit int) ([]model.Activity, error)
}

type ActivityHandler struct {
    Store ActivityLister
}

func NewActivityHandler(store ActivityLister) *ActivityHandler {
    if store == nil {
        panic("nil store passed to NewActivityHandler")
    }
    return &ActivityHandler{Store: store}
}

// ListActivity handles GET /v1/admin/activity?limit=n.
func (h *ActivityHandler) ListActivity(c echo.Context) error {
    limit := defaultActivityLimit
    if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
        }
        limit = n
    }
    if limit > maxActivityLimit {
        limit = maxActivityLimit
    }
    items, err := h.Store.ListRecent(c.Request().Context(), limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load activity"})
    }
    return c.JSON(http.StatusOK, items)
}
