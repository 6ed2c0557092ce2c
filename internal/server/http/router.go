package httpserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/laatu08/Offline-Note-App/internal/auth"
	"github.com/laatu08/Offline-Note-App/internal/service"
)

// NewRouter builds the REST API. ping backs /healthz and may be nil.
func NewRouter(notes service.NoteService, v *auth.Verifier, log *zap.Logger, ping func(context.Context) error) *mux.Router {
	h := NewNoteHandler(notes)

	r := mux.NewRouter()
	r.Use(Logging(log))
	r.HandleFunc("/healthz", Health(ping)).Methods(http.MethodGet)

	protected := r.PathPrefix("/notes").Subrouter()
	protected.Use(Auth(v))
	protected.HandleFunc("", h.List).Methods(http.MethodGet)
	protected.HandleFunc("", h.Create).Methods(http.MethodPost)
	protected.HandleFunc("/sync", h.Sync).Methods(http.MethodPost)
	protected.HandleFunc("/{id}", h.Update).Methods(http.MethodPut)
	protected.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	return r
}
