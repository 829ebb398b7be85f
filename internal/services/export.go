package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/storage"
	"github.com/notesapp/apiserver/types"
)

const exportContentType = "application/json"

// ExportService writes a user's notes to object storage as a JSON document.
type ExportService struct {
	users   UserRepository
	notes   NoteRepository
	objects storage.ObjectStorage
	events  events.Publisher
	now     func() time.Time
}

// NewExportService returns a service that reports ErrExportDisabled when
// objects is nil.
func NewExportService(users UserRepository, notes NoteRepository, objects storage.ObjectStorage, publisher events.Publisher) *ExportService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ExportService{
		users:   users,
		notes:   notes,
		objects: objects,
		events:  publisher,
		now:     time.Now,
	}
}

// Enabled reports whether an export backend is configured.
func (s *ExportService) Enabled() bool {
	return s.objects != nil
}

// ExportKey returns the object key of export exportID for user userID.
func ExportKey(userID int, exportID string) string {
	return fmt.Sprintf("exports/users/%d/%s.json", userID, exportID)
}

// Export snapshots user userID and their notes.
func (s *ExportService) Export(ctx context.Context, actor access.Actor, userID int) (types.ExportReceipt, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return types.ExportReceipt{}, err
	}
	if !s.Enabled() {
		return types.ExportReceipt{}, ErrExportDisabled
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.ExportReceipt{}, err
	}
	notes, err := s.notes.ListByOwner(ctx, userID)
	if err != nil {
		return types.ExportReceipt{}, err
	}

	doc := types.NoteExport{
		ID:         uuid.NewString(),
		ExportedAt: s.now().UTC(),
		ExportedBy: actor.ID,
		User:       user,
		Notes:      notes,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return types.ExportReceipt{}, fmt.Errorf("encode export: %w", err)
	}

	key := ExportKey(userID, doc.ID)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return types.ExportReceipt{}, fmt.Errorf("upload export: %w", err)
	}

	s.events.Publish(ctx, events.New(events.NotesExported, actor.ID, userID, map[string]any{
		"export_id":  doc.ID,
		"note_count": len(notes),
	}))

	return types.ExportReceipt{
		ID:        doc.ID,
		UserID:    userID,
		Bucket:    s.objects.Bucket(),
		Key:       key,
		NoteCount: len(notes),
		Size:      int64(len(data)),
		CreatedAt: doc.ExportedAt,
	}, nil
}

// Open returns the stored export document. Malformed ids are reported as
// storage.ErrObjectNotFound.
func (s *ExportService) Open(ctx context.Context, actor access.Actor, userID int, exportID string) (io.ReadCloser, error) {
	key, err := s.key(actor, userID, exportID)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, key)
}

// Delete removes a stored export.
func (s *ExportService) Delete(ctx context.Context, actor access.Actor, userID int, exportID string) error {
	key, err := s.key(actor, userID, exportID)
	if err != nil {
		return err
	}
	return s.objects.Delete(ctx, key)
}

func (s *ExportService) key(actor access.Actor, userID int, exportID string) (string, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return "", err
	}
	if !s.Enabled() {
		return "", ErrExportDisabled
	}
	id, err := uuid.Parse(exportID)
	if err != nil {
		return "", storage.ErrObjectNotFound
	}
	return ExportKey(userID, id.String()), nil
}
