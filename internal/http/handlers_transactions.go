package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hucha/internal/core"
	"hucha/internal/services"
)

type createTransactionRequest struct {
	MonthID       int64              `json:"month_id"`
	WeekID        *int64             `json:"week_id"`
	CategoryID    *int64             `json:"category_id"`
	Amount        FlexAmount         `json:"amount"`
	Type          *core.TxType       `json:"type"`
	Attribution   *core.Attribution  `json:"attribution"`
	PaymentMethod core.PaymentMethod `json:"payment_method"`
	Concept       string             `json:"concept"`
	Note          string             `json:"note"`
	OccurredAt    *time.Time         `json:"occurred_at"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.Create(r.Context(), services.CreateTransactionInput{
		MonthID:       req.MonthID,
		WeekID:        req.WeekID,
		CategoryID:    req.CategoryID,
		Amount:        string(req.Amount),
		Type:          req.Type,
		Attribution:   req.Attribution,
		PaymentMethod: req.PaymentMethod,
		Concept:       req.Concept,
		Note:          req.Note,
		OccurredAt:    req.OccurredAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month_id")
	monthID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || monthID <= 0 {
		writeError(w, r, fmt.Errorf("%w: month_id query parameter required", core.ErrValidation))
		return
	}

	txs, err := s.ledger.List(r.Context(), monthID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type updateTransactionRequest struct {
	Amount        *FlexAmount         `json:"amount"`
	CategoryID    *int64              `json:"category_id"`
	Attribution   *core.Attribution   `json:"attribution"`
	PaymentMethod *core.PaymentMethod `json:"payment_method"`
	Concept       *string             `json:"concept"`
	Note          *string             `json:"note"`
	OccurredAt    *time.Time          `json:"occurred_at"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.Update(r.Context(), id, services.UpdateTransactionInput{
		Amount:        req.Amount.strPtr(),
		CategoryID:    req.CategoryID,
		Attribution:   req.Attribution,
		PaymentMethod: req.PaymentMethod,
		Concept:       req.Concept,
		Note:          req.Note,
		OccurredAt:    req.OccurredAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
