package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/notesapp/apiserver/types"
)

const noteColumns = `id, title, description, owner_id, created_at, updated_at`

// NoteRepository handles persistence for notes.
type NoteRepository struct {
	db     *sql.DB
	reader *sql.DB
}

func NewNoteRepository(db, reader *sql.DB) *NoteRepository {
	if reader == nil {
		reader = db
	}
	return &NoteRepository{db: db, reader: reader}
}

func scanNote(row rowScanner) (types.Note, error) {
	var note types.Note
	var description sql.NullString
	err := row.Scan(
		&note.ID,
		&note.Title,
		&description,
		&note.OwnerID,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return types.Note{}, err
	}
	if description.Valid {
		note.Description = &description.String
	}
	return note, nil
}

func (r *NoteRepository) Get(ctx context.Context, id int) (types.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	note, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	const query = `
		INSERT INTO notes (title, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		note.Title,
		nullString(note.Description),
		note.OwnerID,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID); err != nil {
		return types.Note{}, translateWriteError(err)
	}
	return note, nil
}

// Update writes title and description. The owner is never changed.
func (r *NoteRepository) Update(ctx context.Context, note types.Note) (types.Note, error) {
	note.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE notes
		SET title = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		note.Title,
		nullString(note.Description),
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return types.Note{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Note{}, err
	}
	if affected == 0 {
		return types.Note{}, ErrNotFound
	}
	return note, nil
}

func (r *NoteRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM notes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of notes, restricted to ownerID when non-nil.
func (r *NoteRepository) Count(ctx context.Context, ownerID *int) (int, error) {
	query := `SELECT COUNT(1) FROM notes`
	var args []any
	if ownerID != nil {
		query += ` WHERE owner_id = $1`
		args = append(args, *ownerID)
	}

	var total int
	if err := r.reader.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns notes newest first, restricted to ownerID when non-nil.
func (r *NoteRepository) List(ctx context.Context, ownerID *int, offset, limit int) ([]types.Note, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	var (
		query string
		args  []any
	)
	if ownerID != nil {
		query = `SELECT ` + noteColumns + ` FROM notes WHERE owner_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3`
		args = []any{*ownerID, limit, offset}
	} else {
		query = `SELECT ` + noteColumns + ` FROM notes
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	return r.query(ctx, r.reader, query, args...)
}

// ListByOwner returns every note owned by ownerID, newest first.
func (r *NoteRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	return r.query(ctx, r.reader, query, ownerID)
}

func (r *NoteRepository) query(ctx context.Context, conn *sql.DB, query string, args ...any) ([]types.Note, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []types.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
