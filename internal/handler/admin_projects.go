package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
)

type ProjectLister interface {
    ListConnectable(ctx context.Context) ([]model.ProjectConfig, error)
}

// projectView is a registry row as shown to operators.  The credential
// itself never leaves the process.
type projectView struct {
    model.ProjectConfig
    HasCredential bool `json:"has_credential"`
}

type ProjectHandler struct {
    Registry ProjectLister
    Creds    supabase.CredentialResolver
}

func NewProjectHandler(reg ProjectLister, creds supabase.CredentialResolver) *ProjectHandler {
    if reg == nil || creds == nil {
        panic("nil dependency passed to NewProjectHandler")
    }
    return &ProjectHandler{Registry: reg, Creds: creds}
}

// ListProjects handles GET /v1/admin/projects.  Local apps need no
// credential and always report has_credential=true.
func (h *ProjectHandler) ListProjects(c echo.Context) error {
    projects, err := h.Registry.ListConnectable(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read project registry"})
    }
    out := make([]projectView, 0, len(projects))
    for _, p := range projects {
        p.UsersTable = p.Table()
        has := p.IsLocal
        if !has {
            _, has = h.Creds.ServiceKey(p.RemoteRef)
        }
        out = append(out, projectView{ProjectConfig: p, HasCredential: has})
    }
    return c.JSON(http.StatusOK, out)
}
