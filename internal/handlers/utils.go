package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/pagination"
	"github.com/notesapp/apiserver/types"
)

const (
	maxBodyBytes = 1 << 20

	detailInternal    = "Internal server error"
	detailInvalidBody = "Invalid request body"
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is the error payload returned by every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func actorFromContext(ctx context.Context) (access.Actor, bool) {
	user, ok := userFromContext(ctx)
	if !ok {
		return access.Actor{}, false
	}
	return access.ActorFromUser(user), true
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeInternalError logs err against the request and hides it from the caller.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logRequestError(r, err, msg)
	writeError(w, http.StatusInternalServerError, detailInternal)
}

func logRequestError(r *http.Request, err error, msg string) {
	hlog.FromRequest(r).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(msg)
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// parsePagination reads page and size. Missing values take the defaults,
// size is clamped into range, and non-integers or page < 1 are rejected.
func parsePagination(r *http.Request) (page, size int, err error) {
	page = pagination.DefaultPage
	size = pagination.DefaultSize

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("page must be an integer greater than 0")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("size must be an integer")
		}
	}

	return page, pagination.ClampSize(size), nil
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
