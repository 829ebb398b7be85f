package services

import (
	"context"

	"github.com/notesapp/apiserver/internal/access"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/pagination"
	"github.com/notesapp/apiserver/types"
)

// NoteRepository defines persistence operations for notes.
type NoteRepository interface {
	Get(ctx context.Context, id int) (types.Note, error)
	Create(ctx context.Context, note types.Note) (types.Note, error)
	Update(ctx context.Context, note types.Note) (types.Note, error)
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context, ownerID *int) (int, error)
	List(ctx context.Context, ownerID *int, offset, limit int) ([]types.Note, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Note, error)
}

// NoteService encapsulates note use-cases. Every read or mutation of an
// existing note loads it first, so a missing note is reported as not found
// before ownership is checked.
type NoteService struct {
	repo   NoteRepository
	events events.Publisher
}

func NewNoteService(repo NoteRepository, publisher events.Publisher) *NoteService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &NoteService{repo: repo, events: publisher}
}

// Create stores a note owned by the actor.
func (s *NoteService) Create(ctx context.Context, actor access.Actor, title string, description *string) (types.Note, error) {
	note, err := s.repo.Create(ctx, types.Note{
		Title:       title,
		Description: description,
		OwnerID:     actor.ID,
	})
	if err != nil {
		return types.Note{}, err
	}

	s.events.Publish(ctx, events.New(events.NoteCreated, actor.ID, note.ID, map[string]any{
		"owner_id": note.OwnerID,
	}))
	return note, nil
}

// List pages over every note for admins and over the actor's own notes
// otherwise.
func (s *NoteService) List(ctx context.Context, actor access.Actor, page, size int) (pagination.Page[types.Note], error) {
	var ownerID *int
	if !actor.IsAdmin() {
		ownerID = &actor.ID
	}

	total, err := s.repo.Count(ctx, ownerID)
	if err != nil {
		return pagination.Page[types.Note]{}, err
	}
	window := pagination.Compute(total, page, size)

	notes, err := s.repo.List(ctx, ownerID, window.Offset, window.Size)
	if err != nil {
		return pagination.Page[types.Note]{}, err
	}
	return pagination.NewPage(notes, window, total), nil
}

func (s *NoteService) Get(ctx context.Context, actor access.Actor, id int) (types.Note, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Note{}, err
	}
	if err := access.AuthorizeNote(actor, note); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

// Update applies the non-nil fields of patch. The owner never changes.
func (s *NoteService) Update(ctx context.Context, actor access.Actor, id int, patch types.NotePatch) (types.Note, error) {
	note, err := s.Get(ctx, actor, id)
	if err != nil {
		return types.Note{}, err
	}

	if patch.Title != nil {
		note.Title = *patch.Title
	}
	if patch.Description != nil {
		note.Description = patch.Description
	}

	note, err = s.repo.Update(ctx, note)
	if err != nil {
		return types.Note{}, err
	}

	s.events.Publish(ctx, events.New(events.NoteUpdated, actor.ID, note.ID, map[string]any{
		"owner_id": note.OwnerID,
	}))
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, actor access.Actor, id int) error {
	note, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, note.ID); err != nil {
		return err
	}

	s.events.Publish(ctx, events.New(events.NoteDeleted, actor.ID, note.ID, map[string]any{
		"owner_id": note.OwnerID,
	}))
	return nil
}
