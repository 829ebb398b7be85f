package types

import "time"

// Note limits.
const (
	NoteTitleMinLength = 1
	NoteTitleMaxLength = 200
)

// Note represents a piece of content owned by a single user.
type Note struct {
	// ID is the unique identifier of the note.
	ID int `json:"id" db:"id"`

	// Title is the required headline of the note, 1 to 200 characters.
	Title string `json:"title" db:"title"`

	// Description is optional free-form text.
	Description *string `json:"description" db:"description"`

	// OwnerID references the user who created the note. It never changes.
	OwnerID int `json:"owner_id" db:"owner_id"`

	// CreatedAt is the timestamp at which the note was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the note.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NotePatch carries a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title       *string
	Description *string
}
