package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/echuvyrov/cursor-mediaintents/models"
	"github.com/echuvyrov/cursor-mediaintents/repository"
)

type searchResponse struct {
	Query   string                 `json:"query"`
	Results []models.SimilarIntent `json:"results"`
}

// Search serves both forms of the similarity endpoint: GET with q/limit/
// threshold query parameters and POST with a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.searchByParams(w, r)
	case http.MethodPost:
		h.searchByBody(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) searchByParams(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `Query parameter "q" is required`, http.StatusBadRequest)
		return
	}

	limit := repository.DefaultSearchLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	threshold := repository.DefaultSearchThreshold
	if v, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64); err == nil {
		threshold = v
	}

	h.search(w, r, query, limit, threshold)
}

func (h *Handler) searchByBody(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string   `json:"query"`
		Limit     *int     `json:"limit"`
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, `Body must include a "query" field`, http.StatusBadRequest)
		return
	}

	limit := repository.DefaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	threshold := repository.DefaultSearchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	h.search(w, r, req.Query, limit, threshold)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, query string, limit int, threshold float64) {
	text := query
	if h.translator != nil {
		text = h.translator.Translate(r.Context(), query)
	}

	results, err := h.store.FindSimilarByText(r.Context(), text, limit, threshold)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("error searching intents")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	for i := range results {
		results[i].Similarity = math.Round(results[i].Similarity*10000) / 10000
	}
	if results == nil {
		results = []models.SimilarIntent{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}
