package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/echuvyrov/cursor-mediaintents/models"
	"github.com/echuvyrov/cursor-mediaintents/repository"
)

// IntentStore is the repository surface the HTTP layer consumes.
type IntentStore interface {
	List(ctx context.Context) ([]models.MediaIntent, error)
	GetByID(ctx context.Context, id string) (*models.MediaIntent, error)
	Create(ctx context.Context, draft models.IntentDraft) (*models.MediaIntent, error)
	Update(ctx context.Context, id string, upd models.IntentUpdate) (*models.MediaIntent, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindSimilarByText(ctx context.Context, text string, limit int, threshold float64) ([]models.SimilarIntent, error)
}

// Translator renders a search query in English before it is embedded.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

type Handler struct {
	store      IntentStore
	translator Translator // nil disables query translation
}

func New(store IntentStore, translator Translator) *Handler {
	return &Handler{store: store, translator: translator}
}

// Router wires the HTTP surface. Only the search route carries permissive
// CORS headers so third-party front-ends can query it directly; the CRUD
// routes stay same-origin.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "x-api-key"},
	})

	// /intents/search must be registered before /intents/{id}
	r.Handle("/intents/search", c.Handler(http.HandlerFunc(h.Search))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	r.HandleFunc("/intents", h.ListIntents).Methods(http.MethodGet)
	r.HandleFunc("/intents", h.CreateIntent).Methods(http.MethodPost)
	r.HandleFunc("/intents/{id}", h.GetIntent).Methods(http.MethodGet)
	r.HandleFunc("/intents/{id}", h.UpdateIntent).Methods(http.MethodPut)
	r.HandleFunc("/intents/{id}", h.DeleteIntent).Methods(http.MethodDelete)

	return r
}

func (h *Handler) ListIntents(w http.ResponseWriter, r *http.Request) {
	intents, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("error fetching intents")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, intents)
}

func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var draft models.IntentDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	intent, err := h.store.Create(r.Context(), draft)
	if err != nil {
		log.Error().Err(err).Str("intent", draft.Intent).Msg("error creating intent")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *Handler) GetIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	intent, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error fetching intent")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *Handler) UpdateIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var upd models.IntentUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	intent, err := h.store.Update(r.Context(), id, upd)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error updating intent")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *Handler) DeleteIntent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error deleting intent")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}
