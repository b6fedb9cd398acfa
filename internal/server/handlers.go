package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ziadkadry99/propwise/internal/rag"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

type ingestRequest struct {
	URLs []string `json:"urls"`
}

type questionRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type searchHit struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.pipeline.State().String(),
	})
}

// handleIngest streams ingestion events as newline-delimited JSON.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: rag.ErrNoURLs.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	s.pipeline.Ingest(r.Context(), req.URLs, func(ev rag.Event) {
		if err := enc.Encode(ev); err != nil {
			log.Printf("server: writing ingest event: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ans, err := s.pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	results, err := s.pipeline.Search(r.Context(), req.Question, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHits(results))
}

func toHits(results []vectordb.SearchResult) []searchHit {
	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{
			ID:         res.Record.ID,
			Source:     res.Record.Metadata.Source,
			Title:      res.Record.Metadata.Title,
			Index:      res.Record.Metadata.Index,
			Text:       res.Record.Text,
			Similarity: res.Similarity,
		}
	}
	return hits
}

// writeError maps pipeline errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rag.ErrNotInitialized):
		writeJSON(w, http.StatusConflict, errorResponse{Error: rag.NotInitializedMessage})
	case errors.Is(err, rag.ErrEmptyQuestion), errors.Is(err, rag.ErrNoURLs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, rag.ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
