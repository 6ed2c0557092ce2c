// Package notesv1 defines the wire contract of the note sync API: message
// types, the gRPC service descriptor and the JSON codec they travel in.
//
// Field names follow the JSON record shape clients already exchange
// (camelCase, timestamps as Unix milliseconds).
package notesv1

// Note is the wire form of a note record. Client-only fields
// (sync status, last synced time) are never transmitted.
type Note struct {
	ID        string `json:"id" validate:"required,uuid"`
	UserID    string `json:"userId,omitempty"`
	Title     string `json:"title" validate:"max=1024"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt" validate:"gte=0"`
	UpdatedAt int64  `json:"updatedAt" validate:"gte=0"`
	Version   int64  `json:"version" validate:"gte=0"`
	Deleted   bool   `json:"deleted,omitempty"`
}

type ListRequest struct {
	Since int64 `json:"since" validate:"gte=0"`
}

type ListResponse struct {
	Notes []*Note `json:"notes"`
}

type CreateRequest struct {
	Note *Note `json:"note" validate:"required"`
}

// UpdateRequest carries a partial update; nil fields are left untouched.
type UpdateRequest struct {
	ID        string  `json:"id" validate:"required,uuid"`
	Title     *string `json:"title,omitempty" validate:"omitempty,max=1024"`
	Content   *string `json:"content,omitempty"`
	UpdatedAt *int64  `json:"updatedAt,omitempty" validate:"omitempty,gte=0"`
	Version   *int64  `json:"version,omitempty" validate:"omitempty,gte=1"`
}

type NoteResponse struct {
	Note *Note `json:"note"`
}

type SoftDeleteRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type BulkSyncRequest struct {
	Notes []*Note `json:"notes" validate:"required,dive,required"`
}

// Conflict pairs the rejected client submission with the record that beat it.
type Conflict struct {
	ClientNote *Note `json:"clientNote"`
	ServerNote *Note `json:"serverNote"`
}

type BulkSyncResponse struct {
	Synced    []*Note     `json:"synced"`
	Conflicts []*Conflict `json:"conflicts"`
}

// DeleteResponse is the REST acknowledgement of a soft delete.
type DeleteResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Message string `json:"message"`
}
