package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/services"
	"github.com/notesapp/apiserver/internal/storage"
	"github.com/notesapp/apiserver/internal/store"
	"github.com/notesapp/apiserver/types"
)

const (
	detailAdminRequired     = "Permission denied. Admin access required."
	detailUserNotFound      = "User not found"
	detailInvalidRole       = "Invalid role. Must be 'admin' or 'user'"
	detailSelfDemotion      = "Admins cannot demote themselves"
	detailSelfDeactivation  = "Admins cannot deactivate themselves"
	detailExportDisabled    = "Note export is not configured"
	detailExportNotFound    = "Export not found"
	detailExportDeleted     = "Export deleted successfully"
	detailInvalidRoleFilter = "role must be 'admin' or 'user'"
)

// AdminHandler provides user administration endpoints.
type AdminHandler struct {
	userService   *services.UserService
	exportService *services.ExportService
}

func NewAdminHandler(userService *services.UserService, exportService *services.ExportService) *AdminHandler {
	return &AdminHandler{userService: userService, exportService: exportService}
}

// AdminRouter registers the admin user routes. Every route requires an
// authenticated admin.
func AdminRouter(
	r chi.Router,
	userService *services.UserService,
	exportService *services.ExportService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAdminHandler(userService, exportService)

	r.Use(authMiddleware, requireAdmin)
	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/role", handler.UpdateRole)
		r.Put("/status", handler.UpdateStatus)
		r.Post("/export", handler.ExportNotes)
		r.Get("/exports/{exportID}", handler.GetExport)
		r.Delete("/exports/{exportID}", handler.DeleteExport)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, detailInvalidCredentials)
			return
		}
		if err := access.RequireAdmin(actor); err != nil {
			writeError(w, http.StatusForbidden, detailAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())

	page, size, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	filter, err := parseUserFilter(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.userService.List(r.Context(), actor, filter, page, size)
	if err != nil {
		writeAdminError(w, r, err, "list users failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	detail, err := h.userService.Detail(r.Context(), actor, id)
	if err != nil {
		writeAdminError(w, r, err, "get user failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, detailInvalidBody)
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), actor, id, req.Role)
	if err != nil {
		writeAdminError(w, r, err, "update role failed")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, detailInvalidBody)
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusUnprocessableEntity, "is_active: cannot be blank.")
		return
	}

	user, err := h.userService.UpdateStatus(r.Context(), actor, id, *req.IsActive)
	if err != nil {
		writeAdminError(w, r, err, "update status failed")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) ExportNotes(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	receipt, err := h.exportService.Export(r.Context(), actor, id)
	if err != nil {
		writeAdminError(w, r, err, "export notes failed")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *AdminHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	body, err := h.exportService.Open(r.Context(), actor, id, chi.URLParam(r, "exportID"))
	if err != nil {
		writeAdminError(w, r, err, "open export failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logRequestError(r, err, "stream export failed")
	}
}

func (h *AdminHandler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.userRequest(w, r)
	if !ok {
		return
	}

	if err := h.exportService.Delete(r.Context(), actor, id, chi.URLParam(r, "exportID")); err != nil {
		writeAdminError(w, r, err, "delete export failed")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: detailExportDeleted})
}

func (h *AdminHandler) userRequest(w http.ResponseWriter, r *http.Request) (access.Actor, int, bool) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return access.Actor{}, 0, false
	}
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return access.Actor{}, 0, false
	}
	return actor, id, true
}

func parseUserFilter(r *http.Request) (types.UserFilter, error) {
	var filter types.UserFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err := types.ParseRole(raw)
		if err != nil {
			return types.UserFilter{}, errors.New(detailInvalidRoleFilter)
		}
		filter.Role = &role
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return types.UserFilter{}, errors.New("is_active must be a boolean")
		}
		filter.IsActive = &active
	}

	return filter, nil
}

func writeAdminError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, detailUserNotFound)
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, detailAdminRequired)
	case errors.Is(err, access.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, detailInvalidRole)
	case errors.Is(err, access.ErrSelfDemotion):
		writeError(w, http.StatusBadRequest, detailSelfDemotion)
	case errors.Is(err, access.ErrSelfDeactivation):
		writeError(w, http.StatusBadRequest, detailSelfDeactivation)
	case errors.Is(err, services.ErrExportDisabled):
		writeError(w, http.StatusServiceUnavailable, detailExportDisabled)
	case errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, detailExportNotFound)
	default:
		writeInternalError(w, r, err, msg)
	}
}
