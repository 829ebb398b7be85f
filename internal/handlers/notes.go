package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/services"
	"github.com/notesapp/apiserver/internal/store"
	"github.com/notesapp/apiserver/types"
)

const (
	detailNoteNotFound     = "Note not found"
	detailPermissionDenied = "Permission denied"
	detailNoteDeleted      = "Note deleted successfully"
)

// NoteHandler provides note CRUD endpoints.
type NoteHandler struct {
	noteService *services.NoteService
}

func NewNoteHandler(noteService *services.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// NoteRouter registers note routes; every route requires authentication.
func NoteRouter(r chi.Router, noteService *services.NoteService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewNoteHandler(noteService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateNote)
	r.Get("/", handler.ListNotes)
	r.Route("/{noteID}", func(r chi.Router) {
		r.Get("/", handler.GetNote)
		r.Put("/", handler.UpdateNote)
		r.Delete("/", handler.DeleteNote)
	})
}

type CreateNoteRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (req CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.RuneLength(types.NoteTitleMinLength, types.NoteTitleMaxLength)),
	)
}

// UpdateNoteRequest is a partial update; absent fields are left unchanged.
type UpdateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (req UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.RuneLength(types.NoteTitleMinLength, types.NoteTitleMaxLength)),
	)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, detailInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	note, err := h.noteService.Create(r.Context(), actor, req.Title, req.Description)
	if err != nil {
		writeInternalError(w, r, err, "create note failed")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	page, size, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.noteService.List(r.Context(), actor, page, size)
	if err != nil {
		writeInternalError(w, r, err, "list notes failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.noteRequest(w, r)
	if !ok {
		return
	}

	note, err := h.noteService.Get(r.Context(), actor, id)
	if err != nil {
		writeNoteError(w, r, err, "get note failed")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.noteRequest(w, r)
	if !ok {
		return
	}

	var req UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, detailInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	note, err := h.noteService.Update(r.Context(), actor, id, types.NotePatch{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeNoteError(w, r, err, "update note failed")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.noteRequest(w, r)
	if !ok {
		return
	}

	if err := h.noteService.Delete(r.Context(), actor, id); err != nil {
		writeNoteError(w, r, err, "delete note failed")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: detailNoteDeleted})
}

func (h *NoteHandler) noteRequest(w http.ResponseWriter, r *http.Request) (access.Actor, int, bool) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return access.Actor{}, 0, false
	}
	id, err := parseIDParam(r, "noteID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return access.Actor{}, 0, false
	}
	return actor, id, true
}

func writeNoteError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, detailNoteNotFound)
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, detailPermissionDenied)
	default:
		writeInternalError(w, r, err, msg)
	}
}
