package http

import (
	"net/http"

	"hucha/internal/core"
	"hucha/internal/services"
)

func (s *Server) handleCurrentWeek(w http.ResponseWriter, r *http.Request) {
	week, err := s.summary.CurrentWeek(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary.CurrentSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Encodes as null when no month is open.
	writeJSON(w, http.StatusOK, sum)
}

type closeWeekRequest struct {
	SmallCoin    *FlexAmount `json:"small_coin"`
	General      *FlexAmount `json:"general"`
	ReturnToBank *FlexAmount `json:"return_to_bank"`
	Note         string      `json:"note"`
}

func (s *Server) handleCloseWeek(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req closeWeekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.lifecycle.CloseWeek(r.Context(), id, services.CloseWeekInput{
		SmallCoin:    req.SmallCoin.strPtr(),
		General:      req.General.strPtr(),
		ReturnToBank: req.ReturnToBank.strPtr(),
		Note:         req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cashReturnRequest struct {
	Amount FlexAmount `json:"amount"`
}

type cashReturnResponse struct {
	Week        core.Week        `json:"week"`
	Transaction core.Transaction `json:"transaction"`
}

func (s *Server) handleCashReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cashReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	week, tx, err := s.lifecycle.CashReturn(r.Context(), id, string(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cashReturnResponse{Week: week, Transaction: tx})
}
