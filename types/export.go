package types

import "time"

// NoteExport is the document written to object storage for a user export.
type NoteExport struct {
	ID         string    `json:"id"`
	ExportedAt time.Time `json:"exported_at"`
	ExportedBy int       `json:"exported_by"`
	User       User      `json:"user"`
	Notes      []Note    `json:"notes"`
}

// ExportReceipt describes a stored export.
type ExportReceipt struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	NoteCount int       `json:"note_count"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
