package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/infra/logging"
	"negotiation-agent/internal/usecase"
)

const maxBodyBytes = 64 << 10

// Server exposes the negotiation use case over JSON.
type Server struct {
	uc  usecase.NegotiationUseCase
	log *zerolog.Logger
}

func NewServer(uc usecase.NegotiationUseCase, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{uc: uc, log: logger}
}

// RegisterAPIV1 mounts the handlers under absolute /api/v1 paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1/negotiations", func(r chi.Router) {
		r.Post("/", s.startNegotiation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getNegotiation)
			r.Post("/messages", s.postSellerMessage)
			r.Post("/cancel", s.cancelNegotiation)
			r.Get("/decisions", s.listDecisions)
		})
	})
}

func (s *Server) startNegotiation(w http.ResponseWriter, r *http.Request) {
	var req StartNegotiationRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.uc.Start(r.Context(), req.toUseCase())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTurn(res))
}

func (s *Server) getNegotiation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.uc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess))
}

func (s *Server) postSellerMessage(w http.ResponseWriter, r *http.Request) {
	var req SellerMessageRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	res, err := s.uc.HandleSellerMessage(logging.WithSessID(r.Context(), id), id, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurn(res))
}

func (s *Server) cancelNegotiation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.uc.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess))
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, Error{Error: "limit must be a positive integer", Field: "limit"})
			return
		}
		limit = n
	}
	id := chi.URLParam(r, "id")
	if _, err := s.uc.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.uc.Decisions(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.DecisionLogEntry{}
	}
	writeJSON(w, http.StatusOK, struct {
		Items []model.DecisionLogEntry `json:"items"`
	}{Items: items})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Error{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Error{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, Error{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Error{Error: "negotiation not found"})
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrSessionNotActive):
		writeJSON(w, http.StatusConflict, Error{Error: err.Error()})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, Error{Error: err.Error()})
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("api request failed")
		writeJSON(w, http.StatusInternalServerError, Error{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
