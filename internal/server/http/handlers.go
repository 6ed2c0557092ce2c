package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"

	"github.com/laatu08/Offline-Note-App/internal/api/notesv1"
	"github.com/laatu08/Offline-Note-App/internal/auth"
	"github.com/laatu08/Offline-Note-App/internal/convert"
	"github.com/laatu08/Offline-Note-App/internal/service"
)

// NoteHandler serves the /notes routes.
type NoteHandler struct {
	notes    service.NoteService
	validate *validator.Validate
}

func NewNoteHandler(notes service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes, validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (h *NoteHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /notes?since=<unix ms>.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromCtx(r.Context())

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "Invalid since")
			return
		}
		since = v
	}
	notes, err := h.notes.List(r.Context(), userID, convert.FromMillis(since))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToWireNotes(notes))
}

// Create handles POST /notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req notesv1.Note
	if !h.decode(w, r, &req) {
		return
	}
	n, err := convert.FromWireNote(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := auth.UserIDFromCtx(r.Context())
	out, err := h.notes.Create(r.Context(), userID, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToWireNote(out))
}

// Update handles PUT /notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req := notesv1.UpdateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.ID = id.String()
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, patch, err := convert.FromWireUpdate(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := auth.UserIDFromCtx(r.Context())
	out, err := h.notes.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToWireNote(out))
}

// Delete handles DELETE /notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, _ := auth.UserIDFromCtx(r.Context())
	if _, err := h.notes.SoftDelete(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notesv1.DeleteResponse{Message: "Note deleted"})
}

// Sync handles POST /notes/sync.
func (h *NoteHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req notesv1.BulkSyncRequest
	if !h.decode(w, r, &req) {
		return
	}
	notes, err := convert.FromWireNotes(req.Notes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := auth.UserIDFromCtx(r.Context())
	res, err := h.notes.BulkSync(r.Context(), userID, notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToWireBulkSync(res))
}

// Health reports readiness of the storage backend.
func Health(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
