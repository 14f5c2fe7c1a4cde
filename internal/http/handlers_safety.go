package http

import (
	"net/http"
	"strconv"

	"hucha/internal/core"
)

type safetyBalanceResponse struct {
	Balance core.Money `json:"balance"`
}

func (s *Server) handleSafetyBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.cash.SafetyBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, safetyBalanceResponse{Balance: balance})
}

func (s *Server) handleSafetyHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.cash.SafetyHistory(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type safetyWithdrawalRequest struct {
	MonthID int64      `json:"month_id"`
	Amount  FlexAmount `json:"amount"`
	Note    string     `json:"note"`
}

func (s *Server) handleSafetyWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req safetyWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.cash.EmergencyWithdrawal(r.Context(), req.MonthID, string(req.Amount), req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
