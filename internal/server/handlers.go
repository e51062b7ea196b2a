package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finsight/cardadvisor/internal/advisor"
	"github.com/finsight/cardadvisor/internal/models"
	"github.com/finsight/cardadvisor/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
	Agent string `json:"agent,omitempty"`
	Raw   string `json:"raw_response,omitempty"`
}

type adviseRequest struct {
	SpendingDescription string   `json:"spending_description"`
	Cards               []string `json:"cards"`
}

type statusResponse struct {
	Ready      bool   `json:"ready"`
	Cards      int    `json:"cards"`
	Chunks     int    `json:"chunks"`
	IndexSize  int    `json:"index_size"`
	Dimensions int    `json:"dimensions"`
	Backend    string `json:"backend"`
	Advisor    bool   `json:"advisor_available"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) decodeSearchRequest(r *http.Request) (*models.SearchRequest, error) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("query is required")
	}
	if req.K <= 0 {
		req.K = s.cfg.Retrieval.DefaultK
	}
	if req.K > s.cfg.Retrieval.MaxK {
		req.K = s.cfg.Retrieval.MaxK
	}
	return &req, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeSearchRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	results, err := s.retriever.Search(r.Context(), req.Query, req.K, req.CardFilter)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     req.Query,
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeSearchRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	context, err := s.retriever.ContextForQuery(r.Context(), req.Query, req.K, req.CardFilter)
	if err != nil {
		s.logger.Error("context retrieval failed", zap.String("query", req.Query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "context retrieval failed")
		return
	}
	s.respondJSON(w, http.StatusOK, models.ContextResponse{Context: context, Query: req.Query})
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		s.respondError(w, http.StatusServiceUnavailable, "advisor is not configured (missing API key)")
		return
	}
	var req adviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SpendingDescription) == "" {
		s.respondError(w, http.StatusBadRequest, "spending_description is required")
		return
	}

	cards := req.Cards
	if len(cards) == 0 {
		stored, err := s.store.ListCards(r.Context())
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "list cards")
			return
		}
		for _, c := range stored {
			cards = append(cards, c.Name)
		}
	}

	result, err := s.advisor.Advise(r.Context(), req.SpendingDescription, cards)
	if err != nil {
		var parseErr *advisor.ParseError
		if errors.As(err, &parseErr) {
			s.respondJSON(w, http.StatusBadGateway, errorResponse{
				Error: "model produced an unparseable response",
				Agent: parseErr.Agent,
				Raw:   parseErr.RawResponse,
			})
			return
		}
		s.logger.Error("advise failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "advice pipeline failed")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		s.logger.Error("list cards failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "list cards failed")
		return
	}
	if cards == nil {
		cards = []models.CardDocument{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"cards": cards, "total": len(cards)})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	card, err := s.store.GetCard(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrCardNotFound) {
			s.respondError(w, http.StatusNotFound, "card not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "get card failed")
		return
	}
	chunks, err := s.store.GetChunksByCard(r.Context(), name)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "get chunks failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"card": card, "chunks": chunks})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	nCards, err := s.store.CountCards(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "count cards failed")
		return
	}
	nChunks, err := s.store.CountChunks(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "count chunks failed")
		return
	}
	s.respondJSON(w, http.StatusOK, statusResponse{
		Ready:      s.retriever.Ready(),
		Cards:      nCards,
		Chunks:     nChunks,
		IndexSize:  s.retriever.IndexSize(),
		Dimensions: s.cfg.Embedding.Dimensions,
		Backend:    s.cfg.Embedding.Backend,
		Advisor:    s.advisor != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
