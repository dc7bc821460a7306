package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
)

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID    string `json:"sessionId"`
	Reply        string `json:"reply"`
	DraftSummary string `json:"draftSummary,omitempty"`
}

func (s *Server) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid request body")
		return
	}

	res, err := s.chatUC.SendTurn(r.Context(), principal.ID, req.SessionID, req.Message)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:    res.SessionID,
		Reply:        res.Reply,
		DraftSummary: res.DraftSummary,
	})
}

type approveRequest struct {
	SessionID string `json:"sessionId"`
}

type approveResponse struct {
	OrderID     string    `json:"orderId"`
	Summary     string    `json:"summary"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "ValidationError", "sessionId required")
		return
	}

	order, err := s.approvalUC.Approve(r.Context(), principal.ID, req.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{
		OrderID:     order.ID,
		Summary:     orderSummary(order),
		SubmittedAt: order.SubmittedAt,
	})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.approvalUC.Abandon(r.Context(), principal.ID, sessionID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"status":    string(model.DraftAbandoned),
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "no principal")
		return
	}
	orders, err := s.approvalUC.ListOrders(r.Context(), principal.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*model.SubmittedOrder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	beverages, err := s.catalogUC.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if beverages == nil {
		beverages = []*model.Beverage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"beverages": beverages})
}

// ---- error mapping ----

type errorResponse struct {
	ErrorKind    string `json:"errorKind"`
	Message      string `json:"message"`
	InvalidLines []int  `json:"invalidLines,omitempty"`
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var stale *domain.StaleOrderError
	if errors.As(err, &stale) {
		writeJSON(w, http.StatusConflict, errorResponse{
			ErrorKind:    "StaleOrderError",
			Message:      stale.Error(),
			InvalidLines: stale.InvalidLines,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrSessionBusy):
		writeError(w, http.StatusConflict, "SessionBusy", err.Error())
	case errors.Is(err, domain.ErrDraftNotReady), errors.Is(err, domain.ErrIncompleteOrder), errors.Is(err, domain.ErrEmptyDraft):
		writeError(w, http.StatusConflict, "IncompleteOrder", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal", "something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, errorResponse{ErrorKind: kind, Message: msg})
}

func orderSummary(o *model.SubmittedOrder) string {
	d := model.OrderDraft{SessionID: o.SessionID, Lines: o.Lines}
	return d.Summary()
}
